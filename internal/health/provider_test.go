package health

import (
	"context"
	"testing"

	voicemock "github.com/nexuslearn/oracy/pkg/provider/voice/mock"
)

func TestProviderChecker(t *testing.T) {
	p := &voicemock.Provider{}
	c := ProviderChecker(p)
	if c.Name != "provider" {
		t.Errorf("Name = %q", c.Name)
	}
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("healthy provider failed check: %v", err)
	}

	p.SetHealthy(false)
	if err := c.Check(context.Background()); err == nil {
		t.Error("unhealthy provider passed check")
	}
}
