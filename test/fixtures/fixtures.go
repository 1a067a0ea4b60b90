package fixtures

import (
	"github.com/nimasrn/community-gateway/internal/model"
)

const (
	OwnerEmail = "owner@example.com"
	BuyerEmail = "buyer@example.com"
	Password   = "s3cret"
)

func NewSignUpRequest(email, name string) model.SignUpRequest {
	return model.SignUpRequest{
		Email:    email,
		Password: Password,
		Name:     name,
		Photo:    name + ".png",
	}
}

func NewFreeGroupRequest(name string) model.GroupFreeRequest {
	return model.GroupFreeRequest{
		Name:  name,
		About: "a free group about " + name,
	}
}

func NewPaidGroupRequest(name string, price int64) model.GroupPaidRequest {
	return model.GroupPaidRequest{
		Name:    name,
		About:   "a paid group about " + name,
		Price:   price,
		Benefit: "weekly signals",
	}
}

func NewWithdrawRequest(amount int64) model.WithdrawRequest {
	return model.WithdrawRequest{
		Amount:            amount,
		BankName:          "BCA",
		BankAccountName:   "Group Owner",
		BankAccountNumber: "0123456789",
	}
}

// Gateway notification statuses.
const (
	StatusSettlement = "settlement"
	StatusCapture    = "capture"
	StatusDeny       = "deny"
	StatusExpire     = "expire"
	StatusPending    = "pending"
)
