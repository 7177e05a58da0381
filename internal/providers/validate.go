package providers

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"mediastudio/internal/domain"
)

// ImageEditRatios are the aspect ratios accepted by the image-edit provider.
var ImageEditRatios = newSet(
	"match_input_image", "1:1", "16:9", "9:16", "4:3", "3:4", "3:2", "2:3",
	"4:5", "5:4", "21:9", "9:21", "2:1", "1:2",
)

// ImageGenerationRatios are the output sizes accepted by the video provider
// in image-generation mode.
var ImageGenerationRatios = newSet(
	"1920:1080", "1080:1920", "1024:1024", "1360:768", "1080:1080", "1168:880",
	"1440:1080", "1080:1440", "1808:768", "2112:912", "1280:720", "720:1280",
	"720:720", "960:720", "720:960", "1680:720",
)

// VideoRatios are the output sizes accepted for image-to-video and
// text-to-video tasks.
var VideoRatios = newSet("1280:720", "720:1280", "1104:832", "832:1104", "960:960", "1584:672")

const maxSafetyToleranceWithImage = 2

type imageEditSchema struct {
	Prompt          string `json:"prompt" validate:"required,max=2000"`
	OutputFormat    string `json:"output_format" validate:"omitempty,oneof=jpg png"`
	SafetyTolerance *int   `json:"safety_tolerance" validate:"omitempty,min=0,max=6"`
	Seed            *int   `json:"seed" validate:"omitempty,min=0"`
}

type videoSchema struct {
	Mode        string `json:"mode" validate:"required,oneof=image-to-video text-to-video image-generation"`
	PromptText  string `json:"promptText" validate:"required_if=Mode text-to-video,required_if=Mode image-generation,max=1000"`
	PromptImage string `json:"promptImage" validate:"required_if=Mode image-to-video,required_if=Mode image-generation"`
	Ratio       string `json:"ratio" validate:"required_if=Mode image-generation"`
	Duration    int    `json:"duration" validate:"omitempty,oneof=5 10"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks input against the schema of the provider serving kind.
// It never performs I/O.
func Validate(kind domain.JobKind, input domain.JobInput) error {
	switch kind {
	case domain.JobKindImageEdit:
		return validateImageEdit(input)
	case domain.JobKindVideoGenerate:
		return validateVideo(input)
	default:
		return &domain.ValidationError{Field: "kind", Message: fmt.Sprintf("unsupported job kind %q", kind)}
	}
}

func validateImageEdit(input domain.JobInput) error {
	schema := imageEditSchema{
		Prompt:          strings.TrimSpace(input.Prompt),
		OutputFormat:    input.OutputFormat,
		SafetyTolerance: input.SafetyTolerance,
		Seed:            input.Seed,
	}
	if err := validate.Struct(schema); err != nil {
		return translate(err)
	}
	if input.AspectRatio != "" {
		if _, ok := ImageEditRatios[input.AspectRatio]; !ok {
			return unsupportedRatio("aspect_ratio", input.AspectRatio, ImageEditRatios)
		}
	}
	if input.InputImage != "" && input.SafetyTolerance != nil && *input.SafetyTolerance > maxSafetyToleranceWithImage {
		return &domain.ValidationError{
			Field:   "safety_tolerance",
			Message: fmt.Sprintf("must be at most %d when input_image is set", maxSafetyToleranceWithImage),
		}
	}
	return nil
}

func validateVideo(input domain.JobInput) error {
	schema := videoSchema{
		Mode:        string(input.Mode),
		PromptText:  strings.TrimSpace(input.PromptText),
		PromptImage: strings.TrimSpace(input.PromptImage),
		Ratio:       input.Ratio,
		Duration:    input.Duration,
	}
	if err := validate.Struct(schema); err != nil {
		return translate(err)
	}
	if schema.PromptImage != "" {
		if err := validate.Var(schema.PromptImage, "http_url"); err != nil {
			return &domain.ValidationError{Field: "promptImage", Message: "must be an http or https URL"}
		}
	}
	allowed := VideoRatios
	if input.Mode == domain.VideoModeImageGeneration {
		allowed = ImageGenerationRatios
	}
	if input.Ratio != "" {
		if _, ok := allowed[input.Ratio]; !ok {
			return unsupportedRatio("ratio", input.Ratio, allowed)
		}
	}
	return nil
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required", "required_if":
		msg = "is required"
	case "oneof":
		msg = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		if fe.Kind() == reflect.String {
			msg = "must be at most " + fe.Param() + " characters"
		} else {
			msg = "must be at most " + fe.Param()
		}
	case "min":
		msg = "must be at least " + fe.Param()
	default:
		msg = "is invalid (" + fe.Tag() + ")"
	}
	return &domain.ValidationError{Field: fe.Field(), Message: msg}
}

func unsupportedRatio(field, value string, allowed map[string]struct{}) error {
	return &domain.ValidationError{
		Field:   field,
		Message: fmt.Sprintf("unsupported ratio %q; supported: %s", value, strings.Join(sortedKeys(allowed), ", ")),
	}
}

func newSet(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
