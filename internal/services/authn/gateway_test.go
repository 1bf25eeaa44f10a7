package authn

import (
	"context"
	"testing"
	"time"

	"erpcore/internal/apperrors"
	"erpcore/internal/auth"
	"erpcore/internal/metrics"
	"erpcore/internal/models"
	"erpcore/internal/services/address"
	"erpcore/internal/services/audit"
	"erpcore/internal/services/user"
	"erpcore/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	gw        *Gateway
	users     *user.Directory
	addresses *address.Service
	signer    *auth.Signer
}

func newEnv(t *testing.T) env {
	t.Helper()
	mem := store.NewMemory()
	lg := zap.NewNop().Sugar()
	m := metrics.Nop()
	rec := audit.NewRecorder(mem, lg, m)
	addrs := address.NewService(mem, rec, lg, m, "Brasil")
	users := user.NewDirectory(mem, addrs, rec, auth.BcryptHasher{}, lg, m)
	signer := auth.NewSigner("test-secret", "erpcore", time.Hour, 24*time.Hour)
	return env{gw: NewGateway(users, signer, auth.BcryptHasher{}, lg), users: users, addresses: addrs, signer: signer}
}

func registration() user.CreateInput {
	return user.CreateInput{
		FirstName: "João",
		LastName:  "Silva",
		CPF:       "111.444.777-35",
		Email:     "Joao@Example.com",
		Password:  "Str0ng!Pass",
		Role:      models.RoleAdministrator,
		Addresses: []address.Input{{Street: "Rua das Flores", City: "Curitiba", State: "PR", ZipCode: "80000-000", IsPrimary: true}},
	}
}

func TestRegisterLoginAndPrimarySwitch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.gw.Register(ctx, registration())
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, res.User.Role, "self-registration cannot pick a role")
	assert.Equal(t, "Bearer", res.TokenType)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	second, err := e.addresses.Create(ctx, res.User.ID, address.Input{Street: "Av. Brasil", City: "Curitiba", State: "PR", ZipCode: "80000-001", IsPrimary: true})
	require.NoError(t, err)

	u, err := e.users.Get(ctx, res.User.ID)
	require.NoError(t, err)
	var primaries []string
	for _, a := range u.Addresses {
		if a.IsPrimary {
			primaries = append(primaries, a.ID.String())
		}
	}
	assert.Equal(t, []string{second.ID.String()}, primaries)

	login, err := e.gw.Login(ctx, " joao@example.COM", "Str0ng!Pass")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
	assert.Len(t, login.User.Addresses, 2)
}

func TestLoginFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.gw.Register(ctx, registration())
	require.NoError(t, err)

	_, err = e.gw.Login(ctx, "joao@example.com", "Wr0ng!Pass")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	wrongPassword, ok := apperrors.As(err)
	require.True(t, ok)

	_, err = e.gw.Login(ctx, "nobody@example.com", "Str0ng!Pass")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	unknown, ok := apperrors.As(err)
	require.True(t, ok)

	_, err = e.users.Deactivate(ctx, res.User.ID)
	require.NoError(t, err)
	_, err = e.gw.Login(ctx, "joao@example.com", "Str0ng!Pass")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	inactive, ok := apperrors.As(err)
	require.True(t, ok)

	// an inactive account must not reveal that the password was right
	assert.Equal(t, wrongPassword.Message, inactive.Message)
	assert.Equal(t, unknown.Message, inactive.Message)
}

func TestRefreshAndValidate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.gw.Register(ctx, registration())
	require.NoError(t, err)

	next, err := e.gw.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.AccessToken, next.AccessToken)

	_, err = e.gw.Refresh(ctx, res.AccessToken)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "access tokens cannot refresh")

	info := e.gw.Validate(ctx, res.AccessToken)
	assert.True(t, info.Valid)
	assert.Equal(t, res.User.ID.String(), info.Subject)
	assert.Equal(t, []string{models.RoleUser}, info.Roles)

	assert.False(t, e.gw.Validate(ctx, res.RefreshToken).Valid)
	assert.False(t, e.gw.Validate(ctx, "garbage").Valid)

	_, err = e.users.Deactivate(ctx, res.User.ID)
	require.NoError(t, err)
	assert.False(t, e.gw.Validate(ctx, res.AccessToken).Valid)
	_, err = e.gw.Refresh(ctx, res.RefreshToken)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestMe(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.gw.Register(ctx, registration())
	require.NoError(t, err)

	claims, err := e.signer.Verify(res.AccessToken)
	require.NoError(t, err)
	me, err := e.gw.Me(auth.WithClaims(ctx, claims))
	require.NoError(t, err)
	assert.Equal(t, "joao@example.com", me.Email)

	_, err = e.gw.Me(ctx)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}
