package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	esTranslations "github.com/go-playground/validator/v10/translations/es"
)

// ValidationError lists every problem found in a catalog.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid catalog: " + strings.Join(e.Problems, "; ")
}

var (
	validatorOnce sync.Once
	validate      *validator.Validate
	translator    ut.Translator
	validatorErr  error
)

func newValidator() (*validator.Validate, ut.Translator, error) {
	v := validator.New()

	esLocale := es.New()
	uni := ut.New(esLocale, esLocale)
	trans, _ := uni.GetTranslator("es")
	if err := esTranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, nil, fmt.Errorf("register translations: %w", err)
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v, trans, nil
}

// Validate checks field constraints plus the ordering rules the game relies on:
// ids are unique, ascending and contiguous, and total_questions matches the list.
func Validate(c *Catalog) error {
	validatorOnce.Do(func() {
		validate, translator, validatorErr = newValidator()
	})
	if validatorErr != nil {
		return validatorErr
	}

	var problems []string
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate catalog: %w", err)
		}
		for _, fe := range fieldErrs {
			problems = append(problems, strings.TrimPrefix(fe.Namespace(), "Catalog.")+": "+fe.Translate(translator))
		}
	}

	for i := 1; i < len(c.Questions); i++ {
		prev, cur := c.Questions[i-1].ID, c.Questions[i].ID
		if cur != prev+1 {
			problems = append(problems, fmt.Sprintf("questions[%d]: id %d must follow %d", i, cur, prev))
		}
	}
	if len(c.Questions) > 0 && c.TotalQuestions != len(c.Questions) {
		problems = append(problems, fmt.Sprintf("total_questions: %d does not match %d questions", c.TotalQuestions, len(c.Questions)))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
