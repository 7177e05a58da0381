package domain

import (
	"errors"
	"fmt"
)

var userMessages = map[string]map[ErrorKind]string{
	"en": {
		ErrorKindValidation:       "Please check your input: %s",
		ErrorKindProvider:         "The generation service rejected the request: %s",
		ErrorKindTimeout:          "Generation is taking longer than expected. It may still finish in the background; check back later before trying again.",
		ErrorKindPersistence:      "Your result was generated but could not be saved. Retry saving instead of generating again.",
		ErrorKindLineageIntegrity: "This timeline has inconsistent history and is shown partially.",
		ErrorKindCanceled:         "Generation was canceled.",
		ErrorKindNotFound:         "The requested item was not found.",
		ErrorKindInternal:         "Something went wrong. Please try again.",
	},
	"id": {
		ErrorKindValidation:       "Periksa kembali input Anda: %s",
		ErrorKindProvider:         "Layanan generasi menolak permintaan: %s",
		ErrorKindTimeout:          "Proses generasi lebih lama dari perkiraan. Hasil mungkin tetap selesai di latar belakang; periksa kembali nanti sebelum mencoba lagi.",
		ErrorKindPersistence:      "Hasil sudah dibuat tetapi gagal disimpan. Coba simpan ulang tanpa membuat ulang.",
		ErrorKindLineageIntegrity: "Riwayat timeline ini tidak konsisten dan ditampilkan sebagian.",
		ErrorKindCanceled:         "Proses generasi dibatalkan.",
		ErrorKindNotFound:         "Data yang diminta tidak ditemukan.",
		ErrorKindInternal:         "Terjadi kesalahan. Silakan coba lagi.",
	},
}

// UserMessage renders a human-readable message for err in the given locale.
// Unknown locales fall back to English.
func UserMessage(err error, locale string) string {
	if err == nil {
		return ""
	}
	messages, ok := userMessages[locale]
	if !ok {
		messages = userMessages["en"]
	}
	kind := KindOf(err)
	format := messages[kind]
	switch kind {
	case ErrorKindValidation:
		var v *ValidationError
		errors.As(err, &v)
		detail := v.Message
		if v.Field != "" {
			detail = v.Field + ": " + v.Message
		}
		return fmt.Sprintf(format, detail)
	case ErrorKindProvider:
		var p *ProviderError
		errors.As(err, &p)
		return fmt.Sprintf(format, p.Message)
	default:
		return format
	}
}
