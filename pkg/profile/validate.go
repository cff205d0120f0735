package profile

import (
	"fmt"
	"regexp"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/graphextract/pkg/errs"
	"github.com/lintang-b-s/graphextract/pkg/model"
)

var classNamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// declaration is validated with go-playground/validator the same way
// pkg/http/router/controllers/routing.go validates inbound requests: build
// a validator.Validate, register the English translator, and turn any
// field errors into a single readable message.
type declaration struct {
	ClassNames         []string   `validate:"max=8,dive,required"`
	ExcludableClasses  [][]string `validate:"max=8"`
}

// ValidateDeclaration checks a profile's declared class names and
// excludable-class combinations against spec.md 6/7's
// InvalidProfileDeclaration rules, before any ingestion starts.
func ValidateDeclaration(p Profile) error {
	classNames := p.ClassNames()
	excludable := p.ExcludableClasses()

	if len(classNames) > model.MaxClassIndex+1 {
		return errs.WrapErrorf(nil, errs.ErrInvalidProfileDeclaration,
			"profile declares %d classes, exceeding the maximum of %d", len(classNames), model.MaxClassIndex+1)
	}
	if len(excludable) > model.MaxExcludableClasses-1 {
		return errs.WrapErrorf(nil, errs.ErrInvalidProfileDeclaration,
			"profile declares %d excludable combinations, exceeding the maximum of %d", len(excludable), model.MaxExcludableClasses-1)
	}

	known := make(map[string]struct{}, len(classNames))
	for _, name := range classNames {
		if !classNamePattern.MatchString(name) {
			return errs.WrapErrorf(nil, errs.ErrInvalidProfileDeclaration,
				"class name %q does not match [A-Za-z0-9]+", name)
		}
		known[name] = struct{}{}
	}

	validate := validator.New()
	decl := declaration{ClassNames: classNames, ExcludableClasses: excludable}
	if err := validate.Struct(decl); err != nil {
		return errs.WrapErrorf(err, errs.ErrInvalidProfileDeclaration, "%s", translate(err))
	}

	for _, combo := range excludable {
		for _, name := range combo {
			if _, ok := known[name]; !ok {
				return errs.WrapErrorf(nil, errs.ErrInvalidProfileDeclaration,
					"excludable combination references undeclared class %q", name)
			}
		}
	}

	return nil
}

// translate renders validator field errors as English sentences, the same
// trio (locales/en + universal-translator + validator/translations/en)
// wired in pkg/http/router/controllers/routing.go for request validation.
func translate(err error) string {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New()
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(trans))
	}
	return fmt.Sprintf("%v", msgs)
}
