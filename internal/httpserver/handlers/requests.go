package handlers

import (
	"strings"

	"erpcore/internal/services/address"
	"erpcore/internal/services/user"
)

type addressRequest struct {
	Street       string  `json:"street" validate:"required,max=200"`
	Number       *string `json:"number" validate:"omitempty,max=20"`
	Neighborhood *string `json:"neighborhood" validate:"omitempty,max=100"`
	Complement   *string `json:"complement" validate:"omitempty,max=100"`
	City         string  `json:"city" validate:"required,max=100"`
	State        string  `json:"state" validate:"required,uf"`
	ZipCode      string  `json:"zipCode" validate:"required,max=10"`
	Country      string  `json:"country" validate:"omitempty,max=60"`
	IsPrimary    bool    `json:"isPrimary"`
}

func (a addressRequest) input() address.Input {
	return address.Input{
		Street:       a.Street,
		Number:       a.Number,
		Neighborhood: a.Neighborhood,
		Complement:   a.Complement,
		City:         a.City,
		State:        a.State,
		ZipCode:      a.ZipCode,
		Country:      a.Country,
		IsPrimary:    a.IsPrimary,
	}
}

type updateAddressRequest struct {
	Street       *string `json:"street" validate:"omitempty,max=200"`
	Number       *string `json:"number" validate:"omitempty,max=20"`
	Neighborhood *string `json:"neighborhood" validate:"omitempty,max=100"`
	Complement   *string `json:"complement" validate:"omitempty,max=100"`
	City         *string `json:"city" validate:"omitempty,max=100"`
	State        *string `json:"state" validate:"omitempty,uf"`
	ZipCode      *string `json:"zipCode" validate:"omitempty,max=10"`
	Country      *string `json:"country" validate:"omitempty,max=60"`
	IsPrimary    *bool   `json:"isPrimary"`
}

func (a updateAddressRequest) patch() address.Patch {
	return address.Patch{
		Street:       a.Street,
		Number:       a.Number,
		Neighborhood: a.Neighborhood,
		Complement:   a.Complement,
		City:         a.City,
		State:        a.State,
		ZipCode:      a.ZipCode,
		Country:      a.Country,
		IsPrimary:    a.IsPrimary,
	}
}

// createUserRequest is shared by self-registration and admin user creation.
type createUserRequest struct {
	FirstName       string           `json:"firstName" validate:"required,max=100"`
	LastName        string           `json:"lastName" validate:"required,max=100"`
	CPF             string           `json:"cpf" validate:"required,cpf"`
	Email           string           `json:"email" validate:"required,email,max=255"`
	Phone           string           `json:"phone" validate:"omitempty,max=20"`
	Password        string           `json:"password" validate:"required"`
	ConfirmPassword string           `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
	Addresses       []addressRequest `json:"addresses" validate:"dive"`
}

func (c *createUserRequest) trim() {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
}

func (c createUserRequest) input() user.CreateInput {
	in := user.CreateInput{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		CPF:       c.CPF,
		Email:     c.Email,
		Phone:     c.Phone,
		Password:  c.Password,
	}
	for _, a := range c.Addresses {
		in.Addresses = append(in.Addresses, a.input())
	}
	return in
}

type updateUserRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	Password  *string `json:"password"`
}

func (u *updateUserRequest) trim() {
	if u.Email != nil {
		e := strings.TrimSpace(*u.Email)
		u.Email = &e
	}
}

func (u updateUserRequest) input() user.UpdateInput {
	return user.UpdateInput{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Password:  u.Password,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type validateRequest struct {
	Token string `json:"token"`
}
