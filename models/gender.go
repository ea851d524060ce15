package models

import (
	"fmt"

	"github.com/go-playground/validator"
)

type Gender string

const (
	Female    Gender = "female"
	Male      Gender = "male"
	NonBinary Gender = "non_binary"
)

var AllGenders = []Gender{Female, Male, NonBinary}

func (g Gender) Valid() bool {
	switch g {
	case Female, Male, NonBinary:
		return true
	}
	return false
}

// ToggleUserGender flips the user's side between female and male.
// Anything that is not female (including non_binary) lands on female.
func ToggleUserGender(g Gender) Gender {
	if g == Female {
		return Male
	}
	return Female
}

// TogglePartnerGender flips the partner's side between male and female.
// Anything that is not male (including non_binary) lands on male.
func TogglePartnerGender(g Gender) Gender {
	if g == Male {
		return Female
	}
	return Male
}

func ParseGender(value string) (Gender, error) {
	g := Gender(value)
	if !g.Valid() {
		return "", fmt.Errorf("unknown gender %q", value)
	}
	return g, nil
}

func ValidateGender(fl validator.FieldLevel) bool {
	return Gender(fl.Field().String()).Valid()
}
