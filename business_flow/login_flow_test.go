package businessflow

import (
	"testing"
	"time"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	testingutil "github.com/casaflow/casaflow/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginTestSecret = "login-flow-test-secret-key-at-least-32-chars"

func newLoginFlow(t *testing.T, testDB *testingutil.TestDB) LoginFlow {
	t.Helper()

	tokenService, err := services.NewTokenService(24*time.Hour, 7*24*time.Hour, "casaflow", "casaflow-api", loginTestSecret)
	require.NoError(t, err)

	return NewLoginFlow(
		repository.NewUserRepository(testDB.DB),
		repository.NewTenantRepository(testDB.DB),
		repository.NewTenantMemberRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		tokenService,
		testDB.DB,
	)
}

func TestLoginFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		meta := NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("Success", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)

			flow := newLoginFlow(t, testDB)

			resp, err := flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "TestPass123!"}, meta)
			require.NoError(t, err)

			assert.Equal(t, user.ID, resp.User.ID)
			assert.Equal(t, user.Email, resp.User.Email)
			assert.NotEmpty(t, resp.Session.AccessToken)
			assert.NotEmpty(t, resp.Session.RefreshToken)
			assert.Equal(t, "Bearer", resp.Session.TokenType)

			require.Len(t, resp.Tenants, 1)
			assert.Equal(t, tenant.UUID.String(), resp.Tenants[0].TenantUUID)
			assert.Equal(t, tenant.Slug, resp.Tenants[0].TenantSlug)
			assert.Equal(t, models.MemberRoleAgent.String(), resp.Tenants[0].Role)

			var stored models.User
			require.NoError(t, testDB.DB.First(&stored, user.ID).Error)
			assert.NotNil(t, stored.LastLoginAt)
		})

		t.Run("WrongPassword", func(t *testing.T) {
			_, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)

			flow := newLoginFlow(t, testDB)

			_, err = flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "NotThePassword1!"}, meta)
			require.Error(t, err)
			assert.True(t, IsIncorrectPassword(err))
		})

		t.Run("UnknownEmail", func(t *testing.T) {
			flow := newLoginFlow(t, testDB)

			_, err := flow.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "TestPass123!"}, meta)
			require.Error(t, err)
			assert.True(t, IsUserNotFound(err))
		})

		t.Run("InactiveAccount", func(t *testing.T) {
			_, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(user).Update("is_active", false).Error)

			flow := newLoginFlow(t, testDB)

			_, err = flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "TestPass123!"}, meta)
			require.Error(t, err)
			assert.True(t, IsAccountInactive(err))
		})

		t.Run("RefreshRotatesPair", func(t *testing.T) {
			_, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)

			flow := newLoginFlow(t, testDB)

			login, err := flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "TestPass123!"}, meta)
			require.NoError(t, err)

			session, err := flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.Session.RefreshToken}, meta)
			require.NoError(t, err)
			assert.NotEmpty(t, session.AccessToken)
			assert.NotEmpty(t, session.RefreshToken)

			// An access token is not accepted as a refresh token
			_, err = flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.Session.AccessToken}, meta)
			require.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}
