package health

import (
	"context"
	"fmt"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

// ProviderChecker adapts a model provider's health probe to a readiness
// [Checker]. The mock provider always passes, so readiness only gates on
// real vendor connectivity.
func ProviderChecker(p voice.Provider) Checker {
	return Checker{
		Name: "provider",
		Check: func(ctx context.Context) error {
			if !p.HealthCheck(ctx) {
				return fmt.Errorf("provider %q reports unhealthy", p.Name())
			}
			return nil
		},
	}
}
