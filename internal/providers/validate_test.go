package providers

import (
	"errors"
	"testing"

	"mediastudio/internal/domain"
)

func intPtr(v int) *int { return &v }

func validationField(t *testing.T, err error) string {
	t.Helper()
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
	return verr.Field
}

func TestValidateImageGenerationModeRequiresAllFields(t *testing.T) {
	full := domain.JobInput{
		Mode:        domain.VideoModeImageGeneration,
		PromptText:  "product on marble",
		PromptImage: "https://x/img.png",
		Ratio:       "1920:1080",
	}
	if err := Validate(domain.JobKindVideoGenerate, full); err != nil {
		t.Fatalf("full input rejected: %v", err)
	}

	cases := map[string]func(in *domain.JobInput){
		"promptText":  func(in *domain.JobInput) { in.PromptText = "" },
		"promptImage": func(in *domain.JobInput) { in.PromptImage = "" },
		"ratio":       func(in *domain.JobInput) { in.Ratio = "" },
	}
	for field, mutate := range cases {
		in := full
		mutate(&in)
		err := Validate(domain.JobKindVideoGenerate, in)
		if got := validationField(t, err); got != field {
			t.Fatalf("missing %s: field = %q (%v)", field, got, err)
		}
	}

	for _, ratio := range []string{"1:1", "1280:721", "16:9", "960:960"} {
		in := full
		in.Ratio = ratio
		if got := validationField(t, Validate(domain.JobKindVideoGenerate, in)); got != "ratio" {
			t.Fatalf("ratio %q: field = %q", ratio, got)
		}
	}
	for ratio := range ImageGenerationRatios {
		in := full
		in.Ratio = ratio
		if err := Validate(domain.JobKindVideoGenerate, in); err != nil {
			t.Fatalf("ratio %q rejected: %v", ratio, err)
		}
	}
}

func TestValidateVideoModes(t *testing.T) {
	tests := []struct {
		name      string
		input     domain.JobInput
		wantField string
	}{
		{name: "image to video ok", input: domain.JobInput{Mode: domain.VideoModeImageToVideo, PromptImage: "https://x/img.png"}},
		{name: "image to video with ratio", input: domain.JobInput{Mode: domain.VideoModeImageToVideo, PromptImage: "https://x/img.png", Ratio: "1280:720", Duration: 10}},
		{name: "image to video missing image", input: domain.JobInput{Mode: domain.VideoModeImageToVideo, PromptText: "spin"}, wantField: "promptImage"},
		{name: "text to video ok", input: domain.JobInput{Mode: domain.VideoModeTextToVideo, PromptText: "a bottle on a beach"}},
		{name: "text to video missing text", input: domain.JobInput{Mode: domain.VideoModeTextToVideo}, wantField: "promptText"},
		{name: "missing mode", input: domain.JobInput{PromptText: "x"}, wantField: "mode"},
		{name: "unknown mode", input: domain.JobInput{Mode: "slideshow"}, wantField: "mode"},
		{name: "bad video ratio", input: domain.JobInput{Mode: domain.VideoModeImageToVideo, PromptImage: "https://x/img.png", Ratio: "1920:1080"}, wantField: "ratio"},
		{name: "prompt image not a url", input: domain.JobInput{Mode: domain.VideoModeImageToVideo, PromptImage: "img.png"}, wantField: "promptImage"},
		{name: "prompt image wrong scheme", input: domain.JobInput{Mode: domain.VideoModeImageToVideo, PromptImage: "ftp://x/img.png"}, wantField: "promptImage"},
		{name: "bad duration", input: domain.JobInput{Mode: domain.VideoModeImageToVideo, PromptImage: "https://x/img.png", Duration: 7}, wantField: "duration"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(domain.JobKindVideoGenerate, tc.input)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if got := validationField(t, err); got != tc.wantField {
				t.Fatalf("field = %q, want %q (%v)", got, tc.wantField, err)
			}
		})
	}
}

func TestValidateImageEdit(t *testing.T) {
	tests := []struct {
		name      string
		input     domain.JobInput
		wantField string
	}{
		{name: "prompt only", input: domain.JobInput{Prompt: "remove background"}},
		{name: "full", input: domain.JobInput{Prompt: "make it blue", InputImage: "https://x/a.png", AspectRatio: "match_input_image", OutputFormat: "png", SafetyTolerance: intPtr(2), Seed: intPtr(42)}},
		{name: "blank prompt", input: domain.JobInput{Prompt: "   "}, wantField: "prompt"},
		{name: "bad ratio", input: domain.JobInput{Prompt: "x", AspectRatio: "7:5"}, wantField: "aspect_ratio"},
		{name: "bad format", input: domain.JobInput{Prompt: "x", OutputFormat: "gif"}, wantField: "output_format"},
		{name: "tolerance too high", input: domain.JobInput{Prompt: "x", SafetyTolerance: intPtr(7)}, wantField: "safety_tolerance"},
		{name: "tolerance capped with image", input: domain.JobInput{Prompt: "x", InputImage: "https://x/a.png", SafetyTolerance: intPtr(4)}, wantField: "safety_tolerance"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(domain.JobKindImageEdit, tc.input)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if got := validationField(t, err); got != tc.wantField {
				t.Fatalf("field = %q, want %q (%v)", got, tc.wantField, err)
			}
		})
	}
}

func TestValidateUnknownKind(t *testing.T) {
	if got := validationField(t, Validate("audio", domain.JobInput{})); got != "kind" {
		t.Fatalf("field = %q, want kind", got)
	}
}
