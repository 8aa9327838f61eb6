package driver

import (
	"fmt"
	"regexp"
)

var (
	collectionNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]{0,199}$`)
	fieldNameRE      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidateCollectionName rejects names that cannot be used as a table name
// by every driver.
func ValidateCollectionName(name string) error {
	if !collectionNameRE.MatchString(name) {
		return fmt.Errorf("%w: collection %q", ErrInvalidName, name)
	}
	return nil
}

// ValidateFieldName rejects wire names that cannot be addressed by every driver.
func ValidateFieldName(name string) error {
	if !fieldNameRE.MatchString(name) {
		return fmt.Errorf("%w: field %q", ErrInvalidName, name)
	}
	return nil
}
