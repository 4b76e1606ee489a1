// Package clipboard copies resolved file listings to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnavailable indicates that no clipboard utility is usable on this system.
var ErrUnavailable = errors.New("clipboard is not available")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	unsupported bool
	writeAll    func(text string) error
}

// NewService constructs a Clipboard service implementation.
func NewService() *Service {
	return &Service{unsupported: clipboard.Unsupported, writeAll: clipboard.WriteAll}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if service.unsupported {
		return ErrUnavailable
	}
	if writeErr := service.writeAll(text); writeErr != nil {
		return fmt.Errorf("copy to clipboard: %w", writeErr)
	}
	return nil
}

var _ Copier = (*Service)(nil)
