package accounts

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rehbersync/internal/crypto"
	"rehbersync/internal/models"
)

func TestMain(m *testing.M) {
	os.Setenv("ENCRYPTION_KEY", "accounts-test-passphrase")
	if err := crypto.InitEncryption(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PortalAccount{}))
	return db
}

func TestAccountLifecycle(t *testing.T) {
	svc := NewService(newTestDB(t))

	t.Run("empty store", func(t *testing.T) {
		_, err := svc.Info()
		assert.ErrorIs(t, err, ErrNotConfigured)
		_, _, err = svc.Credentials()
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("save and read back", func(t *testing.T) {
		require.NoError(t, svc.Upsert("rehber01", "gizliŞifre123"))

		info, err := svc.Info()
		require.NoError(t, err)
		assert.Equal(t, "rehber01", info.Username)

		user, pass, err := svc.Credentials()
		require.NoError(t, err)
		assert.Equal(t, "rehber01", user)
		assert.Equal(t, "gizliŞifre123", pass)
	})

	t.Run("upsert replaces the single account", func(t *testing.T) {
		require.NoError(t, svc.Upsert("rehber02", "yeniŞifre"))

		user, pass, err := svc.Credentials()
		require.NoError(t, err)
		assert.Equal(t, "rehber02", user)
		assert.Equal(t, "yeniŞifre", pass)

		var count int64
		require.NoError(t, svc.db.Model(&models.PortalAccount{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("rejects blank credentials", func(t *testing.T) {
		assert.Error(t, svc.Upsert("", "pw"))
		assert.Error(t, svc.Upsert("user", ""))
	})
}

func TestPasswordStoredEncrypted(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	require.NoError(t, svc.Upsert("rehber01", "düzMetinParola"))

	var account models.PortalAccount
	require.NoError(t, db.First(&account).Error)
	assert.NotEmpty(t, account.PasswordEnc)
	assert.NotContains(t, account.PasswordEnc, "düzMetinParola")
}
