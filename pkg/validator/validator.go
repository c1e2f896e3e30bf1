package validator

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"academy-backend/internal/course"
)

var (
	validate  *validator.Validate
	sanitizer *bluemonday.Policy

	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)
	urlPattern        = regexp.MustCompile(`^https?://[a-zA-Z0-9\-\.]+(:[0-9]+)?(/.*)?$`)
	spacePattern      = regexp.MustCompile(`\s+`)
)

func init() {
	Init()
}

func Init() {
	validate = validator.New()
	sanitizer = bluemonday.StrictPolicy()

	registerCustomValidations(validate)

	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerCustomValidations(engine)
	}
}

func registerCustomValidations(v *validator.Validate) {
	_ = v.RegisterValidation("identifier", validateIdentifier)
	_ = v.RegisterValidation("resource_type", validateResourceType)
	_ = v.RegisterValidation("no_html", validateNoHTML)
	_ = v.RegisterValidation("http_url", validateHTTPURL)
}

func Validate(s interface{}) error {
	return validate.Struct(s)
}

// SanitizeString strips all markup and collapses whitespace.
func SanitizeString(s string) string {
	return NormalizeSpaces(strings.TrimSpace(sanitizer.Sanitize(s)))
}

func ValidateIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}

func validateIdentifier(fl validator.FieldLevel) bool {
	return ValidateIdentifier(fl.Field().String())
}

func validateResourceType(fl validator.FieldLevel) bool {
	return course.ResourceType(fl.Field().String()).Valid()
}

func validateNoHTML(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return !strings.Contains(value, "<") && !strings.Contains(value, ">")
}

func validateHTTPURL(fl validator.FieldLevel) bool {
	return urlPattern.MatchString(fl.Field().String())
}

func NormalizeSpaces(s string) string {
	return spacePattern.ReplaceAllString(s, " ")
}
