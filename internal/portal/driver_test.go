package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{BaseURL: "https://mebbis.meb.gov.tr"}
	cfg.applyDefaults()

	assert.Equal(t, 30*time.Second, cfg.LaunchTimeout)
	assert.Equal(t, 2*time.Minute, cfg.LoginTimeout)
	assert.Equal(t, 15*time.Second, cfg.StepTimeout)
	assert.Equal(t, 20*time.Second, cfg.SubmitTimeout)
}

func TestIsPortalRejection(t *testing.T) {
	tests := []struct {
		name         string
		confirmation string
		rejected     bool
	}{
		{"success message", "Görüşme kaydı başarıyla kaydedildi.", false},
		{"error message", "Hata: zorunlu alanlar eksik", true},
		{"uppercase error", "HATA OLUŞTU", true},
		{"failure message", "Kayıt başarısız oldu", true},
		{"empty confirmation", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.rejected, isPortalRejection(tt.confirmation))
		})
	}
}

func TestItemFailureClassification(t *testing.T) {
	t.Run("Should return non-fatal outcome while browser is alive", func(t *testing.T) {
		d := &ChromeDriver{ctx: context.Background()}
		outcome := SessionOutcome{SessionRef: "s1"}

		got, err := d.itemFailure(outcome, "student 123 not found on portal", errors.New("timeout"))

		require.NoError(t, err)
		assert.False(t, got.Success)
		assert.Contains(t, got.Error, "student 123 not found")
		assert.Equal(t, "s1", got.SessionRef)
	})

	t.Run("Should escalate to fatal when browser context is dead", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d := &ChromeDriver{ctx: ctx}

		_, err := d.itemFailure(SessionOutcome{SessionRef: "s1"}, "whatever", errors.New("target closed"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser session lost")
	})
}

func TestRunBeforeInitialize(t *testing.T) {
	d := &ChromeDriver{}
	err := d.run(time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestCloseIdempotent(t *testing.T) {
	d := &ChromeDriver{}
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}

func TestNavigationPathShape(t *testing.T) {
	// The fixed path must end on the record-entry screen marker
	require.NotEmpty(t, navigationPath)
	last := navigationPath[len(navigationPath)-1]
	assert.Equal(t, selStudentSearchBox, last.waitFor)
	for _, step := range navigationPath {
		assert.NotEmpty(t, step.name)
		assert.NotEmpty(t, step.click)
		assert.NotEmpty(t, step.waitFor)
	}
}
