package output

import (
	"encoding/json"
	"fmt"
	"io"

	sharedErrors "github.com/khanhnv2901/domaindiag/internal/shared/errors"
)

// Marshal renders v as two-space indented JSON with a trailing newline.
func Marshal(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}
	return append(b, '\n'), nil
}

// WriteJSON writes v to w as pretty JSON.
func WriteJSON(w io.Writer, v any) error {
	b, err := Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
