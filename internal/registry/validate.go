package registry

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"batchline/models"
)

// MaxPageSize bounds List and Search windows.
const MaxPageSize = 1000

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

type SupplierInput struct {
	Name string `validate:"required,max=200"`
}

type ItemInput struct {
	Name       string `validate:"required,max=200"`
	SupplierID string `validate:"required"`
}

type FormulaEntryInput struct {
	ItemID string  `validate:"required"`
	Weight float64 `validate:"gte=0"`
}

type FormulaInput struct {
	Name    string              `validate:"required,max=200"`
	Entries []FormulaEntryInput `validate:"dive"`
}

// ProportionalFormulaInput pairs ItemIDs with Shares by position. Shares are
// normalised so the resulting weights sum to one.
type ProportionalFormulaInput struct {
	Name    string    `validate:"required,max=200"`
	ItemIDs []string  `validate:"dive,required"`
	Shares  []float64 `validate:"dive,gte=0"`
}

type UserInput struct {
	Username string      `validate:"required,max=100"`
	Password string      `validate:"required"`
	Role     models.Role `validate:"required,oneof=Admin User"`
}

// UserUpdate replaces a user's username and role. A nil Password keeps the
// stored hash.
type UserUpdate struct {
	Username string      `validate:"required,max=100"`
	Password *string     `validate:"omitempty,min=1"`
	Role     models.Role `validate:"required,oneof=Admin User"`
}

type SprintItemInput struct {
	ItemID string `validate:"required"`
	Target float64
}

type SprintInput struct {
	ProcessID  string            `validate:"required"`
	Number     int               `validate:"gte=0"`
	Items      []SprintItemInput `validate:"dive"`
	OperatorID string            `validate:"required"`
	Comment    *string
}

type ProcessInput struct {
	Name      string `validate:"required,max=200"`
	FormulaID string `validate:"required"`
}

type pageInput struct {
	Page int `validate:"gte=0"`
	Size int `validate:"gt=0,lte=1000"`
}

// check runs struct validation and reports failures as ErrValidation.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return invalid("%v", err)
	}
	problems := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			problems = append(problems, field+" is required")
		case "max":
			problems = append(problems, field+" is too long, max: "+fe.Param())
		case "gte", "gt":
			problems = append(problems, field+" must be "+fe.Tag()+" "+fe.Param())
		case "lte":
			problems = append(problems, field+" must be at most "+fe.Param())
		case "oneof":
			problems = append(problems, field+" must be one of: "+fe.Param())
		default:
			problems = append(problems, field+" is invalid")
		}
	}
	return invalid("%s", strings.Join(problems, "; "))
}

func checkPage(page, size int) error {
	return check(pageInput{Page: page, Size: size})
}
