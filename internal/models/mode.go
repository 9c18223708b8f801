package models

import "fmt"

// ScanMode selects which detection ruleset applies to the input.
type ScanMode string

const (
	ModeCode   ScanMode = "code"
	ModePrompt ScanMode = "prompt"
	ModePII    ScanMode = "pii"
	ModeWeb    ScanMode = "web"
)

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (ScanMode, error) {
	switch ScanMode(s) {
	case ModeCode, ModePrompt, ModePII, ModeWeb:
		return ScanMode(s), nil
	default:
		return "", fmt.Errorf("unknown scan mode %q (want code, prompt, pii or web)", s)
	}
}
