package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/google/uuid"
)

// DefaultRoles is the role set a MemoryStore starts with. It mirrors the
// roles seeded by the database migrations.
var DefaultRoles = []models.Role{
	{ID: "ce27ffb5-bc8c-45d9-986f-368d526d7da9", Name: models.RoleAdmin},
	{ID: "194ef413-1415-4124-8b16-f78a3d9dbff9", Name: models.RoleUser},
	{ID: "fec76980-3008-45b6-8c43-f48d1948794c", Name: models.RoleHR},
}

// MemoryStore keeps everything in process memory. Returned users are copies.
type MemoryStore struct {
	mu            sync.Mutex
	hasher        Hasher
	decoy         func() string
	tokenValidity time.Duration
	now           func() time.Time

	users       map[string]*models.User // by normalized email
	roles       []models.Role
	assignments map[string][]string // user ID -> role names
	tokens      map[string]*models.ConfirmationToken
}

func NewMemoryStore(hasher Hasher, tokenValidity time.Duration, roles ...models.Role) *MemoryStore {
	if len(roles) == 0 {
		roles = DefaultRoles
	}
	return &MemoryStore{
		hasher:        hasher,
		decoy:         decoyHash(hasher),
		tokenValidity: tokenValidity,
		now:           time.Now,
		users:         make(map[string]*models.User),
		roles:         append([]models.Role(nil), roles...),
		assignments:   make(map[string][]string),
		tokens:        make(map[string]*models.ConfirmationToken),
	}
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[NormalizeEmail(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (s *MemoryStore) Create(_ context.Context, user *models.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := NormalizeEmail(user.Email)
	if _, ok := s.users[key]; ok {
		return common.ErrorAlreadyExists
	}

	user.ID = uuid.NewString()
	user.NormalizedEmail = key
	user.PasswordHash = hash
	user.SecurityStamp = uuid.NewString()
	user.EmailConfirmed = false
	user.CreatedAt = s.now()

	c := *user
	s.users[key] = &c
	return nil
}

func (s *MemoryStore) CheckPassword(_ context.Context, user *models.User, password string) bool {
	return checkPassword(s.hasher, s.decoy, user, password)
}

func (s *MemoryStore) findRole(name string) (models.Role, bool) {
	for _, r := range s.roles {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return models.Role{}, false
}

func (s *MemoryStore) RoleExists(_ context.Context, role string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.findRole(role)
	return ok, nil
}

func (s *MemoryStore) AddToRole(_ context.Context, user *models.User, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.findRole(role)
	if !ok {
		return common.ErrorInvalidRole
	}
	if _, ok := s.users[user.NormalizedEmail]; !ok {
		return common.ErrorNotFound
	}

	for _, name := range s.assignments[user.ID] {
		if name == r.Name {
			return nil
		}
	}
	s.assignments[user.ID] = append(s.assignments[user.ID], r.Name)
	return nil
}

func (s *MemoryStore) GetRoles(_ context.Context, user *models.User) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string{}, s.assignments[user.ID]...), nil
}

func (s *MemoryStore) GenerateEmailConfirmationToken(_ context.Context, user *models.User) (string, error) {
	raw, err := common.MakeRandURLToken(common.ConfirmationTokenSize)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	hash := HashToken(raw)
	s.tokens[hash] = &models.ConfirmationToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     NormalizeEmail(user.Email),
		TokenHash: hash,
		ExpiresAt: now.Add(s.tokenValidity),
		CreatedAt: now,
	}
	return raw, nil
}

func (s *MemoryStore) ConfirmEmail(_ context.Context, user *models.User, token string) error {
	if token == "" {
		return common.ErrorInvalidOrExpiredToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t, ok := s.tokens[HashToken(token)]
	if !ok || t.UsedAt != nil || !now.Before(t.ExpiresAt) ||
		t.UserID != user.ID || t.Email != NormalizeEmail(user.Email) {
		return common.ErrorInvalidOrExpiredToken
	}

	stored, ok := s.users[NormalizeEmail(user.Email)]
	if !ok || stored.ID != user.ID {
		return common.ErrorNotFound
	}

	t.UsedAt = &now
	stored.EmailConfirmed = true
	stored.SecurityStamp = uuid.NewString()

	user.EmailConfirmed = true
	user.SecurityStamp = stored.SecurityStamp
	return nil
}
