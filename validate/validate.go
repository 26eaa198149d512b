package validate

import (
	"errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
)

var validate *validator.Validate

var translator ut.Translator

func init() {

	validate = validator.New()

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)
}

// Check validates val against its struct tags and returns the first failure
// as a translated, user readable error.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {

		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		if len(verrors) < 1 {
			return nil
		}

		return errors.New(verrors[0].Translate(translator))
	}

	return nil
}

// Var validates a single value against tag.
func Var(val any, tag string) error {
	if err := validate.Var(val, tag); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok || len(verrors) < 1 {
			return err
		}
		return errors.New(verrors[0].Translate(translator))
	}
	return nil
}

func GenerateID() string {
	return uuid.NewString()
}
