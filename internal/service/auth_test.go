package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/mailer"
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/session"
	"carparts-storefront/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	*fixture
	sessions session.Store
	mail     *mailer.Recorder
	auth     *authServiceImpl
	guard    AuthGuard
}

func newAuthFixture(t *testing.T) *authFixture {
	f := newFixture(t)
	sessions := session.NewMemoryStore(session.Options{TTL: time.Hour})
	mail := &mailer.Recorder{}

	auth := NewAuthService(
		f.db,
		AuthConfig{VerificationTTL: 24 * time.Hour, VerifyURL: "http://shop.test/verify-email"},
		sessions,
		f.users,
		f.profiles,
		f.verifications,
		mail,
		f.validator,
		testutil.Logger(),
	).(*authServiceImpl)

	return &authFixture{
		fixture:  f,
		sessions: sessions,
		mail:     mail,
		auth:     auth,
		guard:    NewAuthGuard(sessions, f.users),
	}
}

// emailedToken pulls the raw verification token out of the last message.
func (f *authFixture) emailedToken(t *testing.T) string {
	t.Helper()

	sent := f.mail.Sent()
	require.NotEmpty(t, sent)
	body := sent[len(sent)-1].Body
	link := body[strings.Index(body, "http"):]
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestRegisterLoginAndGuard(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, &dto.RegisterRequest{Name: " Dana ", Email: " Dana@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Dana", user.Name)
	assert.Equal(t, "dana@example.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.False(t, user.IsVerified)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	require.Len(t, f.mail.Sent(), 1)
	assert.Equal(t, "dana@example.com", f.mail.Sent()[0].To)

	_, err = f.auth.Register(ctx, &dto.RegisterRequest{Name: "Dup", Email: "dana@example.com", Password: "secret1"})
	assert.Equal(t, ErrEmailTaken, err)

	_, _, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "dana@example.com", Password: "wrong-one"})
	assert.Equal(t, ErrInvalidCredentials, err)
	_, _, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "ghost@example.com", Password: "secret1"})
	assert.Equal(t, ErrInvalidCredentials, err)

	loggedIn, token, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "DANA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	require.NotEmpty(t, token)

	current, err := f.guard.RequireLogin(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)

	_, err = f.guard.RequireAdmin(ctx, token)
	assert.Equal(t, ErrAdminRequired, err)
	assert.Equal(t, 403, kindStatus(t, err))

	require.NoError(t, f.auth.Logout(ctx, token))
	_, err = f.guard.RequireLogin(ctx, token)
	assert.Equal(t, ErrAuthRequired, err)
}

func kindStatus(t *testing.T, err error) int {
	t.Helper()

	e, ok := apperr.As(err)
	require.True(t, ok)
	return e.Status()
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.Register(context.Background(), &dto.RegisterRequest{Email: "not-an-email", Password: "123"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "name is required")
	assert.Contains(t, e.Fields, "email must be a valid email address")
	assert.Contains(t, e.Fields, "password must be at least 6 characters")
	assert.Empty(t, f.mail.Sent())
}

func TestGuardWithoutSessionOrUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.guard.RequireLogin(ctx, "")
	assert.Equal(t, ErrAuthRequired, err)
	assert.Equal(t, 401, kindStatus(t, err))

	_, err = f.guard.RequireAdmin(ctx, "made-up-token")
	assert.Equal(t, ErrAuthRequired, err)

	// the session outlives its user
	token, err := f.sessions.Create(ctx, 4242)
	require.NoError(t, err)
	_, err = f.guard.RequireLogin(ctx, token)
	assert.Equal(t, ErrSessionUserGone, err)

	admin := f.user(t, "root@example.com", model.RoleAdmin)
	token, err = f.sessions.Create(ctx, admin.ID)
	require.NoError(t, err)
	got, err := f.guard.RequireAdmin(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)
}

func TestVerifyEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, &dto.RegisterRequest{Name: "Eli", Email: "eli@example.com", Password: "secret1"})
	require.NoError(t, err)
	token := f.emailedToken(t)
	require.Len(t, token, 64)

	assert.Equal(t, apperr.KindValidation, kindOf(t, f.auth.VerifyEmail(ctx, "short")))
	assert.Equal(t, apperr.KindValidation, kindOf(t, f.auth.VerifyEmail(ctx, strings.Repeat("0", 64))))

	require.NoError(t, f.auth.VerifyEmail(ctx, token))
	verified, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	err = f.auth.VerifyEmail(ctx, token)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Token already used", e.Message)
}

func TestVerifyEmailExpired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, &dto.RegisterRequest{Name: "Fay", Email: "fay@example.com", Password: "secret1"})
	require.NoError(t, err)
	token := f.emailedToken(t)

	f.auth.now = func() time.Time { return time.Now().UTC().Add(25 * time.Hour) }
	err = f.auth.VerifyEmail(ctx, token)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Token expired", e.Message)
}

func TestMeAndUpdateMe(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.user(t, "gus@example.com", model.RoleUser)

	me, err := f.auth.Me(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, me.Profile)
	assert.Nil(t, me.Vehicle)
	assert.Nil(t, me.Address)

	me, err = f.auth.UpdateMe(ctx, user, &dto.UpdateMeRequest{
		Name:    "Gus",
		Profile: &dto.ProfileInput{Gender: "male", DateOfBirth: "1990-04-02"},
		Vehicle: &dto.VehicleInput{Year: 2015, Make: "Volkswagen", Model: "Golf", Engine: "1.6 TDI"},
		Address: &dto.AddressInput{AddressLine1: "Main St 1", City: "Tallinn", Country: "EE"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Gus", me.User.Name)
	require.NotNil(t, me.Profile)
	assert.Equal(t, "1990-04-02", me.Profile.DateOfBirth)
	require.NotNil(t, me.Vehicle)
	assert.Equal(t, "Golf", me.Vehicle.Model)
	require.NotNil(t, me.Address)
	assert.Equal(t, "Tallinn", me.Address.City)

	me, err = f.auth.UpdateMe(ctx, user, &dto.UpdateMeRequest{
		Name:    "Gus",
		Vehicle: &dto.VehicleInput{Year: 2019, Make: "Skoda", Model: "Octavia"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Octavia", me.Vehicle.Model)
	assert.Equal(t, "Tallinn", me.Address.City)

	var vehicles int64
	require.NoError(t, f.db.Model(&model.UserVehicle{}).Where("user_id = ?", user.ID).Count(&vehicles).Error)
	assert.Equal(t, int64(1), vehicles)

	_, err = f.auth.UpdateMe(ctx, user, &dto.UpdateMeRequest{Name: "", Profile: &dto.ProfileInput{Gender: "robot"}})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Len(t, e.Fields, 2)
}
