package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/naveenspark/household/internal/session"
	"github.com/naveenspark/household/pkg/domain"
)

// fakeAPI records calls and answers from per-method funcs. Unset funcs
// return zero values.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	listAssets   func() ([]domain.Asset, error)
	createAsset  func(domain.AssetInput) (*domain.Asset, error)
	updateAsset  func(uuid.UUID, domain.AssetPatch) (*domain.Asset, error)
	deleteAsset  func(uuid.UUID) error
	listTxs      func(domain.TransactionFilter) ([]domain.Transaction, error)
	createTx     func(domain.TransactionInput) (*domain.Transaction, error)
	updateTx     func(uuid.UUID, domain.TransactionPatch) (*domain.Transaction, error)
	deleteTx     func(uuid.UUID) error
	listCats     func(domain.TransactionType) ([]domain.Category, error)
	getSummary   func() (*domain.SummarySnapshot, error)
	getMonthly   func(year, month int) (*domain.MonthlySnapshot, error)
	createGroup  func(domain.FamilyGroupInput) (*domain.FamilyGroup, error)
	getGroup     func() (*domain.FamilyGroup, error)
	addMember    func(uuid.UUID, domain.AddMemberRequest) (*domain.FamilyMember, error)
	removeMember func(uuid.UUID, string) error
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) ListAssets(context.Context) ([]domain.Asset, error) {
	f.record("ListAssets")
	if f.listAssets == nil {
		return nil, nil
	}
	return f.listAssets()
}

func (f *fakeAPI) CreateAsset(_ context.Context, in domain.AssetInput) (*domain.Asset, error) {
	f.record("CreateAsset")
	if f.createAsset == nil {
		return &domain.Asset{ID: uuid.New(), Type: in.Type, Name: in.Name, Amount: in.Amount}, nil
	}
	return f.createAsset(in)
}

func (f *fakeAPI) UpdateAsset(_ context.Context, id uuid.UUID, p domain.AssetPatch) (*domain.Asset, error) {
	f.record("UpdateAsset")
	if f.updateAsset == nil {
		return &domain.Asset{ID: id}, nil
	}
	return f.updateAsset(id, p)
}

func (f *fakeAPI) DeleteAsset(_ context.Context, id uuid.UUID) error {
	f.record("DeleteAsset")
	if f.deleteAsset == nil {
		return nil
	}
	return f.deleteAsset(id)
}

func (f *fakeAPI) ListTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	f.record("ListTransactions")
	if f.listTxs == nil {
		return nil, nil
	}
	return f.listTxs(filter)
}

func (f *fakeAPI) CreateTransaction(_ context.Context, in domain.TransactionInput) (*domain.Transaction, error) {
	f.record("CreateTransaction")
	if f.createTx == nil {
		return &domain.Transaction{ID: uuid.New()}, nil
	}
	return f.createTx(in)
}

func (f *fakeAPI) UpdateTransaction(_ context.Context, id uuid.UUID, p domain.TransactionPatch) (*domain.Transaction, error) {
	f.record("UpdateTransaction")
	if f.updateTx == nil {
		return &domain.Transaction{ID: id}, nil
	}
	return f.updateTx(id, p)
}

func (f *fakeAPI) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	f.record("DeleteTransaction")
	if f.deleteTx == nil {
		return nil
	}
	return f.deleteTx(id)
}

func (f *fakeAPI) ListCategories(_ context.Context, typ domain.TransactionType) ([]domain.Category, error) {
	f.record("ListCategories")
	if f.listCats == nil {
		return nil, nil
	}
	return f.listCats(typ)
}

func (f *fakeAPI) GetSummary(context.Context) (*domain.SummarySnapshot, error) {
	f.record("GetSummary")
	if f.getSummary == nil {
		return &domain.SummarySnapshot{}, nil
	}
	return f.getSummary()
}

func (f *fakeAPI) GetMonthly(_ context.Context, year, month int) (*domain.MonthlySnapshot, error) {
	f.record("GetMonthly")
	if f.getMonthly == nil {
		return &domain.MonthlySnapshot{Year: year, Month: month}, nil
	}
	return f.getMonthly(year, month)
}

func (f *fakeAPI) CreateFamilyGroup(_ context.Context, in domain.FamilyGroupInput) (*domain.FamilyGroup, error) {
	f.record("CreateFamilyGroup")
	if f.createGroup == nil {
		return &domain.FamilyGroup{ID: uuid.New(), Name: in.Name}, nil
	}
	return f.createGroup(in)
}

func (f *fakeAPI) GetMyFamilyGroup(context.Context) (*domain.FamilyGroup, error) {
	f.record("GetMyFamilyGroup")
	if f.getGroup == nil {
		return nil, nil
	}
	return f.getGroup()
}

func (f *fakeAPI) AddFamilyMember(_ context.Context, groupID uuid.UUID, req domain.AddMemberRequest) (*domain.FamilyMember, error) {
	f.record("AddFamilyMember")
	if f.addMember == nil {
		return &domain.FamilyMember{ID: uuid.New(), FamilyGroupID: groupID, Email: req.Email, Role: req.Role}, nil
	}
	return f.addMember(groupID, req)
}

func (f *fakeAPI) RemoveFamilyMember(_ context.Context, groupID uuid.UUID, userID string) error {
	f.record("RemoveFamilyMember")
	if f.removeMember == nil {
		return nil
	}
	return f.removeMember(groupID, userID)
}

// fakeSession is a session manager whose state the test sets directly.
type fakeSession struct {
	mu       sync.Mutex
	state    session.State
	updates  chan session.State
	signOuts int
}

func newFakeSession(st session.State) *fakeSession {
	return &fakeSession{state: st, updates: make(chan session.State, 1)}
}

func (s *fakeSession) State() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSession) Updates() <-chan session.State { return s.updates }

func (s *fakeSession) SignOut(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signOuts++
	return nil
}

func authedState(id, email string) session.State {
	return session.State{
		Phase: session.PhaseResolved,
		Auth:  session.Authenticated,
		User:  &domain.AuthenticatedUser{ID: id, Email: email},
	}
}

func signedOutState() session.State {
	return session.State{Phase: session.PhaseResolved, Auth: session.Unauthenticated}
}

// key builds a KeyMsg for a key name as bubbletea prints it.
func key(s string) tea.KeyMsg {
	named := map[string]tea.KeyType{
		"enter":     tea.KeyEnter,
		"esc":       tea.KeyEsc,
		"tab":       tea.KeyTab,
		"shift+tab": tea.KeyShiftTab,
		"backspace": tea.KeyBackspace,
		"up":        tea.KeyUp,
		"down":      tea.KeyDown,
		"left":      tea.KeyLeft,
		"right":     tea.KeyRight,
		"ctrl+c":    tea.KeyCtrlC,
		"ctrl+s":    tea.KeyCtrlS,
	}
	if t, ok := named[s]; ok {
		return tea.KeyMsg{Type: t}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// typeInto feeds text one rune at a time through update.
func typeInto(f *form, text string) {
	for _, r := range text {
		f.update(key(string(r)))
	}
}

var testNow = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

func amount(s string) domain.Amount {
	a, err := domain.ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}
