package services

import (
	"context"
	"sync"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"github.com/Dias221467/Sales_CRM/internal/push"
	"github.com/Dias221467/Sales_CRM/internal/repository"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Dispatch(ctx context.Context, tokens []string, msg push.Message) (*push.DispatchResult, error) {
	args := m.Called(ctx, tokens, msg)
	res, _ := args.Get(0).(*push.DispatchResult)
	return res, args.Error(1)
}

// fakeUsers is an in-memory DeviceStore.
type fakeUsers struct {
	mu     sync.Mutex
	tokens map[primitive.ObjectID][]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{tokens: make(map[primitive.ObjectID][]string)}
}

func (f *fakeUsers) add(id primitive.ObjectID, tokens ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[id] = append([]string{}, tokens...)
}

func (f *fakeUsers) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens, ok := f.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &models.User{ID: id, DeviceTokens: append([]string{}, tokens...)}, nil
}

func (f *fakeUsers) AddDeviceToken(_ context.Context, id primitive.ObjectID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens, ok := f.tokens[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, t := range tokens {
		if t == token {
			return nil
		}
	}
	f.tokens[id] = append(tokens, token)
	return nil
}

func (f *fakeUsers) RemoveDeviceTokens(_ context.Context, id primitive.ObjectID, remove []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := make(map[string]bool, len(remove))
	for _, t := range remove {
		drop[t] = true
	}
	var kept []string
	for _, t := range f.tokens[id] {
		if !drop[t] {
			kept = append(kept, t)
		}
	}
	if _, ok := f.tokens[id]; ok {
		f.tokens[id] = kept
	}
	return 1, nil
}

// fakeClients is an in-memory ClientStore and InteractionStore.
type fakeClients struct {
	mu           sync.Mutex
	clients      map[primitive.ObjectID]models.Client
	interactions []models.Interaction
}

func newFakeClients() *fakeClients {
	return &fakeClients{clients: make(map[primitive.ObjectID]models.Client)}
}

func (f *fakeClients) CreateClient(_ context.Context, c *models.Client) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = primitive.NewObjectID()
	c.CreatedAt = time.Now().UTC()
	f.clients[c.ID] = *c
	return c, nil
}

func (f *fakeClients) GetClientByID(_ context.Context, id primitive.ObjectID) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f *fakeClients) UpdateClient(_ context.Context, c *models.Client) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	f.clients[c.ID] = *c
	return c, nil
}

func (f *fakeClients) SetFollowUp(_ context.Context, id primitive.ObjectID, at *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.FollowUpAt = at
	f.clients[id] = c
	return nil
}

func (f *fakeClients) DeleteClient(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.clients, id)
	return nil
}

func (f *fakeClients) GetClientsByOwner(_ context.Context, ownerID primitive.ObjectID) ([]models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Client
	for _, c := range f.clients {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeClients) CreateInteraction(_ context.Context, in *models.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	in.ID = primitive.NewObjectID()
	f.interactions = append(f.interactions, *in)
	return nil
}

func (f *fakeClients) GetClientInteractions(_ context.Context, clientID primitive.ObjectID, limit int) ([]models.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Interaction
	for i := len(f.interactions) - 1; i >= 0 && len(out) < limit; i-- {
		if f.interactions[i].ClientID == clientID {
			out = append(out, f.interactions[i])
		}
	}
	return out, nil
}

func (f *fakeClients) DeleteByClient(_ context.Context, clientID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.interactions[:0]
	for _, in := range f.interactions {
		if in.ClientID != clientID {
			kept = append(kept, in)
		}
	}
	f.interactions = kept
	return nil
}

// faultyStore injects storage failures into the in-memory reminder store.
type faultyStore struct {
	*repository.MemoryReminderRepository
	fetchErr  error
	markErr   error
	createErr error
}

func (f *faultyStore) FetchDueBatch(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.MemoryReminderRepository.FetchDueBatch(ctx, now, limit)
}

func (f *faultyStore) MarkSent(ctx context.Context, id primitive.ObjectID) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	return f.MemoryReminderRepository.MarkSent(ctx, id)
}

func (f *faultyStore) CreateReminder(ctx context.Context, ownerID, subjectID primitive.ObjectID, at time.Time) (*models.Reminder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.MemoryReminderRepository.CreateReminder(ctx, ownerID, subjectID, at)
}
