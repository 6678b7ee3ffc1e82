package config

import (
	"errors"
	"fmt"
	"time"
)

var ErrMissingEnv = errors.New("missing required env")

func NonEmpty(value, envName string) error {
	if value == "" {
		return fmt.Errorf("%w %s", ErrMissingEnv, envName)
	}
	return nil
}

func NonEmptyBytes(value []byte, envName string) error {
	if len(value) == 0 {
		return fmt.Errorf("%w %s", ErrMissingEnv, envName)
	}
	return nil
}

func PositiveDuration(value time.Duration, envName string) error {
	if value <= 0 {
		return fmt.Errorf("env %s must be a positive duration, got %s", envName, value)
	}
	return nil
}

// Require joins every failed check into one error.
func Require(checks ...error) error {
	return errors.Join(checks...)
}
