package services

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/logging"
	"github.com/dmitrijs2005/usermanager/internal/server/auth"
	"github.com/dmitrijs2005/usermanager/internal/server/identity"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/dmitrijs2005/usermanager/internal/server/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const confirmURL = "https://id.example.com/api/authentication/ConfirmEmail"

// --- helpers ---

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingNotifier) Dispatch(_ context.Context, m notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recordingNotifier) last(t *testing.T) notify.Message {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.msgs)
	return r.msgs[len(r.msgs)-1]
}

type fixture struct {
	svc      *AuthenticationService
	store    *identity.MemoryStore
	notifier *recordingNotifier
	parser   *auth.Parser
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key := []byte("test-signing-key-test-signing-key")
	store := identity.NewMemoryStore(identity.NewBcryptHasher(bcrypt.MinCost), 48*time.Hour)
	n := &recordingNotifier{}
	l := logging.NewZapLogger(zaptest.NewLogger(t))
	return &fixture{
		svc:      NewAuthenticationService(store, auth.NewIssuer(key, "iss", "aud", 3*time.Hour), n, l),
		store:    store,
		notifier: n,
		parser:   auth.NewParser(key, "iss", "aud"),
	}
}

func aliceInput() RegisterInput {
	return RegisterInput{
		Username:        "alice",
		Email:           "alice@x.com",
		Password:        "P@ss1",
		Role:            "User",
		ConfirmationURL: confirmURL,
	}
}

func tokenFromLink(t *testing.T, link string) (string, string) {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token"), u.Query().Get("email")
}

// faultyStore overrides selected operations of a working store.
type faultyStore struct {
	identity.Store
	findErr     error
	roleErr     error
	createErr   error
	addRoleErr  error
	getRolesErr error
	genTokenErr error
	confirmErr  error
}

func (f *faultyStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.Store.FindByEmail(ctx, email)
}

func (f *faultyStore) RoleExists(ctx context.Context, role string) (bool, error) {
	if f.roleErr != nil {
		return false, f.roleErr
	}
	return f.Store.RoleExists(ctx, role)
}

func (f *faultyStore) Create(ctx context.Context, u *models.User, pw string) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.Store.Create(ctx, u, pw)
}

func (f *faultyStore) AddToRole(ctx context.Context, u *models.User, role string) error {
	if f.addRoleErr != nil {
		return f.addRoleErr
	}
	return f.Store.AddToRole(ctx, u, role)
}

func (f *faultyStore) GetRoles(ctx context.Context, u *models.User) ([]string, error) {
	if f.getRolesErr != nil {
		return nil, f.getRolesErr
	}
	return f.Store.GetRoles(ctx, u)
}

func (f *faultyStore) GenerateEmailConfirmationToken(ctx context.Context, u *models.User) (string, error) {
	if f.genTokenErr != nil {
		return "", f.genTokenErr
	}
	return f.Store.GenerateEmailConfirmationToken(ctx, u)
}

func (f *faultyStore) ConfirmEmail(ctx context.Context, u *models.User, token string) error {
	if f.confirmErr != nil {
		return f.confirmErr
	}
	return f.Store.ConfirmEmail(ctx, u, token)
}

func withStore(f *fixture, s identity.Store) *AuthenticationService {
	svc := *f.svc
	svc.store = s
	return &svc
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, aliceInput())
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", res.Email)
	assert.NotEmpty(t, res.UserID)

	u, err := f.store.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.False(t, u.EmailConfirmed)

	roles, err := f.store.GetRoles(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []string{"User"}, roles)

	msg := f.notifier.last(t)
	assert.Equal(t, []string{"alice@x.com"}, msg.To)
	assert.Equal(t, ConfirmationSubject, msg.Subject)

	token, email := tokenFromLink(t, msg.Body)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice@x.com", email)
	assert.Contains(t, msg.Body, confirmURL+"?")
	assert.NotContains(t, msg.Body, "P@ss1")
}

func TestRegister_SameEmailTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	again := aliceInput()
	again.Email = " ALICE@x.com"
	_, err = f.svc.Register(ctx, again)
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	assert.Len(t, f.notifier.msgs, 1)
}

func TestRegister_UnknownRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := aliceInput()
	in.Role = "Superuser"
	_, err := f.svc.Register(ctx, in)
	assert.ErrorIs(t, err, common.ErrorInvalidRole)

	_, err = f.store.FindByEmail(ctx, in.Email)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Empty(t, f.notifier.msgs)
}

func TestRegister_StoreFailures(t *testing.T) {
	boom := errors.New("boom")

	cases := []struct {
		name   string
		store  func(identity.Store) *faultyStore
		want   error
		notify bool
	}{
		{"lookup fault", func(s identity.Store) *faultyStore { return &faultyStore{Store: s, findErr: boom} }, common.ErrorInternal, false},
		{"role lookup fault", func(s identity.Store) *faultyStore { return &faultyStore{Store: s, roleErr: boom} }, common.ErrorInternal, false},
		{"create fault", func(s identity.Store) *faultyStore { return &faultyStore{Store: s, createErr: boom} }, common.ErrorCreationFailed, false},
		{"create lost race", func(s identity.Store) *faultyStore {
			return &faultyStore{Store: s, createErr: common.ErrorAlreadyExists}
		}, common.ErrorAlreadyExists, false},
		{"role assignment fault", func(s identity.Store) *faultyStore { return &faultyStore{Store: s, addRoleErr: boom} }, common.ErrorCreationFailed, false},
		{"token fault", func(s identity.Store) *faultyStore { return &faultyStore{Store: s, genTokenErr: boom} }, common.ErrorInternal, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			svc := withStore(f, tc.store(f.store))

			_, err := svc.Register(context.Background(), aliceInput())
			assert.ErrorIs(t, err, tc.want)
			assert.NotContains(t, err.Error(), "boom")
			assert.Equal(t, tc.notify, len(f.notifier.msgs) > 0)
		})
	}
}

func TestRegister_BadConfirmationURLLeavesNoAccount(t *testing.T) {
	for _, base := range []string{
		"/api/authentication/ConfirmEmail",
		"id.example.com/api/authentication/ConfirmEmail",
		"ftp://id.example.com/api/authentication/ConfirmEmail",
	} {
		t.Run(base, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			in := aliceInput()
			in.ConfirmationURL = base

			_, err := f.svc.Register(ctx, in)
			assert.ErrorIs(t, err, common.ErrorInternal)
			assert.Empty(t, f.notifier.msgs)

			_, err = f.store.FindByEmail(ctx, in.Email)
			assert.ErrorIs(t, err, common.ErrorNotFound)

			in.ConfirmationURL = confirmURL
			_, err = f.svc.Register(ctx, in)
			require.NoError(t, err)
			assert.Len(t, f.notifier.msgs, 1)
		})
	}
}

// --- Login ---

func TestLogin_WithoutConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, "alice@x.com", "P@ss1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.Expiration.After(time.Now()))
	assert.Equal(t, "alice@x.com", res.Email)
	assert.NotEmpty(t, res.UserID)

	p, err := f.parser.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, []string{"User"}, p.Roles)
	assert.NotEmpty(t, p.TokenID)
}

func TestLogin_UniformDenial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	res1, err1 := f.svc.Login(ctx, "alice@x.com", "wrong")
	res2, err2 := f.svc.Login(ctx, "nobody@x.com", "P@ss1")

	assert.Nil(t, res1)
	assert.Nil(t, res2)
	assert.ErrorIs(t, err1, common.ErrorUnauthorized)
	assert.ErrorIs(t, err2, common.ErrorUnauthorized)
	assert.Equal(t, err1.Error(), err2.Error())
}

// checkRecordingStore records every password check the flow asks for.
type checkRecordingStore struct {
	identity.Store
	checked []*models.User
}

func (p *checkRecordingStore) CheckPassword(ctx context.Context, u *models.User, pw string) bool {
	p.checked = append(p.checked, u)
	return p.Store.CheckPassword(ctx, u, pw)
}

func TestLogin_UnknownEmailStillChecksPassword(t *testing.T) {
	f := newFixture(t)
	s := &checkRecordingStore{Store: f.store}
	svc := withStore(f, s)

	_, err := svc.Login(context.Background(), "nobody@x.com", "P@ss1")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	require.Len(t, s.checked, 1)
	assert.Nil(t, s.checked[0])
}

func TestLogin_ExpiryIsFixedAfterIssuance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	before := time.Now().Truncate(time.Second)
	res, err := f.svc.Login(ctx, "alice@x.com", "P@ss1")
	require.NoError(t, err)
	after := time.Now()

	assert.False(t, res.Expiration.Before(before.Add(3*time.Hour)))
	assert.False(t, res.Expiration.After(after.Add(3*time.Hour)))
}

func TestLogin_DistinctTokenIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		res, err := f.svc.Login(ctx, "alice@x.com", "P@ss1")
		require.NoError(t, err)
		p, err := f.parser.Parse(res.Token)
		require.NoError(t, err)
		assert.False(t, seen[p.TokenID], "token id reused")
		seen[p.TokenID] = true
	}
}

func TestLogin_MultipleRolesInStoreOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	u, err := f.store.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	require.NoError(t, f.store.AddToRole(ctx, u, "Admin"))

	res, err := f.svc.Login(ctx, "alice@x.com", "P@ss1")
	require.NoError(t, err)
	p, err := f.parser.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{"User", "Admin"}, p.Roles)
}

type failingIssuer struct{}

func (failingIssuer) Issue([]auth.Claim) (*auth.SessionToken, error) {
	return nil, errors.New("sign failed")
}

func TestLogin_InfrastructureFaults(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("lookup", func(t *testing.T) {
		f := newFixture(t)
		svc := withStore(f, &faultyStore{Store: f.store, findErr: boom})
		_, err := svc.Login(ctx, "alice@x.com", "P@ss1")
		assert.ErrorIs(t, err, common.ErrorInternal)
	})

	t.Run("roles", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, aliceInput())
		require.NoError(t, err)
		svc := withStore(f, &faultyStore{Store: f.store, getRolesErr: boom})
		_, err = svc.Login(ctx, "alice@x.com", "P@ss1")
		assert.ErrorIs(t, err, common.ErrorInternal)
	})

	t.Run("issuer", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, aliceInput())
		require.NoError(t, err)
		svc := *f.svc
		svc.issuer = failingIssuer{}
		_, err = svc.Login(ctx, "alice@x.com", "P@ss1")
		assert.ErrorIs(t, err, common.ErrorInternal)
	})
}

// --- ConfirmEmail ---

func TestConfirmEmail_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	token, email := tokenFromLink(t, f.notifier.last(t).Body)

	require.NoError(t, f.svc.ConfirmEmail(ctx, token, email))
	u, err := f.store.FindByEmail(ctx, email)
	require.NoError(t, err)
	assert.True(t, u.EmailConfirmed)

	err = f.svc.ConfirmEmail(ctx, token, email)
	assert.ErrorIs(t, err, common.ErrorInvalidOrExpiredToken)
}

func TestConfirmEmail_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.svc.ConfirmEmail(ctx, "tok", "ghost@x.com"), common.ErrorNotFound)
	})

	t.Run("wrong token keeps account unverified", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, aliceInput())
		require.NoError(t, err)

		assert.ErrorIs(t, f.svc.ConfirmEmail(ctx, "forged", "alice@x.com"), common.ErrorInvalidOrExpiredToken)
		u, err := f.store.FindByEmail(ctx, "alice@x.com")
		require.NoError(t, err)
		assert.False(t, u.EmailConfirmed)
	})

	t.Run("token for another account", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, aliceInput())
		require.NoError(t, err)
		aliceToken, _ := tokenFromLink(t, f.notifier.last(t).Body)

		bob := aliceInput()
		bob.Username, bob.Email = "bob", "bob@x.com"
		_, err = f.svc.Register(ctx, bob)
		require.NoError(t, err)

		assert.ErrorIs(t, f.svc.ConfirmEmail(ctx, aliceToken, "bob@x.com"), common.ErrorInvalidOrExpiredToken)
	})

	t.Run("store fault surfaces as invalid token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, aliceInput())
		require.NoError(t, err)
		svc := withStore(f, &faultyStore{Store: f.store, confirmErr: errors.New("db down")})

		assert.ErrorIs(t, svc.ConfirmEmail(ctx, "t", "alice@x.com"), common.ErrorInvalidOrExpiredToken)
	})

	t.Run("lookup fault", func(t *testing.T) {
		f := newFixture(t)
		svc := withStore(f, &faultyStore{Store: f.store, findErr: errors.New("db down")})
		assert.ErrorIs(t, svc.ConfirmEmail(ctx, "t", "alice@x.com"), common.ErrorInternal)
	})
}

func TestConfirmationLink(t *testing.T) {
	base, err := parseConfirmationURL("https://h/x?keep=1")
	require.NoError(t, err)

	u, err := url.Parse(confirmationLink(base, "a+b/c", "a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "a+b/c", u.Query().Get("token"))
	assert.Equal(t, "a@x.com", u.Query().Get("email"))
	assert.Equal(t, "1", u.Query().Get("keep"))
	assert.Equal(t, "https://h/x?keep=1", base.String())

	_, err = parseConfirmationURL("not absolute")
	assert.Error(t, err)
}
