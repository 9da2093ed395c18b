package betslip

import (
	"fmt"
	"sync"

	"github.com/radieske/betslip-service/pkg/contracts/events"
)

// DefaultStakeCents é o stake inicial de uma aposta recém adicionada (10,00)
const DefaultStakeCents int64 = 1000

// ChangeKind identifica o tipo de mutação do slip
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeReplaced
	ChangeRemoved
	ChangeAmount
	ChangeCleared
	ChangeAccepted
	ChangePatched
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeReplaced:
		return "replaced"
	case ChangeRemoved:
		return "removed"
	case ChangeAmount:
		return "amount"
	case ChangeCleared:
		return "cleared"
	case ChangeAccepted:
		return "accepted"
	case ChangePatched:
		return "patched"
	}
	return "unknown"
}

// UserAction indica mutações feitas pelo usuário (não pelo Reconciler)
func (k ChangeKind) UserAction() bool { return k != ChangePatched }

// Membership indica mutações que alteram o conjunto de eventos referenciados
func (k ChangeKind) Membership() bool {
	return k == ChangeAdded || k == ChangeRemoved || k == ChangeCleared
}

// Change é emitido a cada mutação efetiva do slip.
// Bets contém as apostas afetadas já no estado final (ou removidas).
type Change struct {
	Kind ChangeKind
	Bets []PendingBet
}

// Listener recebe as mudanças de forma síncrona, fora do lock do Store
type Listener func(Change)

// Store é a coleção ordenada de apostas pendentes do slip.
// É a única dona das PendingBet; leituras recebem cópias.
type Store struct {
	mu           sync.RWMutex
	bets         []PendingBet
	defaultStake int64

	lmu       sync.RWMutex
	listeners []Listener
}

// NewStore cria um slip vazio. defaultStake <= 0 usa DefaultStakeCents.
func NewStore(defaultStake int64) *Store {
	if defaultStake <= 0 {
		defaultStake = DefaultStakeCents
	}
	return &Store{defaultStake: defaultStake}
}

// OnChange registra um listener chamado a cada mutação
func (s *Store) OnChange(l Listener) {
	s.lmu.Lock()
	s.listeners = append(s.listeners, l)
	s.lmu.Unlock()
}

func (s *Store) emit(c Change) {
	s.lmu.RLock()
	ls := make([]Listener, len(s.listeners))
	copy(ls, s.listeners)
	s.lmu.RUnlock()
	for _, l := range ls {
		l(c)
	}
}

func (s *Store) indexOf(k Key) int {
	for i := range s.bets {
		if s.bets[i].EventID == k.EventID && s.bets[i].Outcome == k.Outcome {
			return i
		}
	}
	return -1
}

// Add cria uma aposta a partir do snapshot do evento com selected = current = odd do outcome.
// Se já existe aposta para (eventId, outcome) ela é substituída na mesma posição.
func (s *Store) Add(ev events.OddsUpdate, o Outcome) (PendingBet, error) {
	if !o.Valid() {
		return PendingBet{}, fmt.Errorf("%w: %q", ErrUnknownOutcome, o)
	}
	if ev.EventID == "" {
		return PendingBet{}, fmt.Errorf("%w: empty event id", ErrEventNotFound)
	}
	odds := OddsFor(ev, o)
	if !odds.IsPositive() {
		return PendingBet{}, fmt.Errorf("%w: %s %s=%s", ErrInvalidOdds, ev.EventID, o.Field(), odds)
	}

	b := PendingBet{
		EventID:      ev.EventID,
		Outcome:      o,
		SelectedOdds: odds,
		CurrentOdds:  odds,
		AmountCents:  s.defaultStake,
		MarketStatus: StatusFor(ev, o),
		Version:      ev.Version,
	}

	kind := ChangeAdded
	s.mu.Lock()
	if i := s.indexOf(b.Key()); i >= 0 {
		s.bets[i] = b
		kind = ChangeReplaced
	} else {
		s.bets = append(s.bets, b)
	}
	s.mu.Unlock()

	s.emit(Change{Kind: kind, Bets: []PendingBet{b}})
	return b, nil
}

// Remove apaga a aposta; no-op se não existir
func (s *Store) Remove(eventID string, o Outcome) {
	s.mu.Lock()
	i := s.indexOf(Key{EventID: eventID, Outcome: o})
	if i < 0 {
		s.mu.Unlock()
		return
	}
	removed := s.bets[i]
	s.bets = append(s.bets[:i:i], s.bets[i+1:]...)
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeRemoved, Bets: []PendingBet{removed}})
}

// UpdateAmount troca o stake da aposta; valores não positivos são rejeitados
func (s *Store) UpdateAmount(eventID string, o Outcome, cents int64) (PendingBet, error) {
	if cents <= 0 {
		return PendingBet{}, fmt.Errorf("%w: %d", ErrInvalidAmount, cents)
	}
	s.mu.Lock()
	i := s.indexOf(Key{EventID: eventID, Outcome: o})
	if i < 0 {
		s.mu.Unlock()
		return PendingBet{}, fmt.Errorf("%w: %s/%s", ErrBetNotFound, eventID, o)
	}
	if s.bets[i].AmountCents == cents {
		b := s.bets[i]
		s.mu.Unlock()
		return b, nil
	}
	s.bets[i].AmountCents = cents
	b := s.bets[i]
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeAmount, Bets: []PendingBet{b}})
	return b, nil
}

// Clear esvazia o slip
func (s *Store) Clear() {
	s.mu.Lock()
	removed := s.bets
	s.bets = nil
	s.mu.Unlock()

	if len(removed) == 0 {
		return
	}
	s.emit(Change{Kind: ChangeCleared, Bets: removed})
}

// RemovePlaced apaga as apostas enviadas num lote. Apostas adicionadas ou
// editadas depois do envio (odds ou stake diferentes) continuam no slip.
func (s *Store) RemovePlaced(placed []BetRequest) []PendingBet {
	s.mu.Lock()
	var removed []PendingBet
	kept := s.bets[:0:0]
	for _, b := range s.bets {
		if wasPlaced(b, placed) {
			removed = append(removed, b)
			continue
		}
		kept = append(kept, b)
	}
	if len(removed) > 0 {
		s.bets = kept
	}
	s.mu.Unlock()

	if len(removed) == 0 {
		return nil
	}
	s.emit(Change{Kind: ChangeRemoved, Bets: removed})
	return removed
}

func wasPlaced(b PendingBet, placed []BetRequest) bool {
	for _, r := range placed {
		if r.EventID == b.EventID && r.Outcome == b.Outcome &&
			r.Odds.Equal(b.SelectedOdds) && r.AmountCents == b.AmountCents {
			return true
		}
	}
	return false
}

// All retorna uma cópia das apostas na ordem de inserção
func (s *Store) All() []PendingBet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PendingBet, len(s.bets))
	copy(out, s.bets)
	return out
}

// Len retorna a quantidade de apostas no slip
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bets)
}

// Get retorna a aposta de (eventId, outcome)
func (s *Store) Get(eventID string, o Outcome) (PendingBet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(Key{EventID: eventID, Outcome: o}); i >= 0 {
		return s.bets[i], true
	}
	return PendingBet{}, false
}

// EventRefs conta quantas apostas referenciam cada evento
func (s *Store) EventRefs() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make(map[string]int, len(s.bets))
	for _, b := range s.bets {
		refs[b.EventID]++
	}
	return refs
}

// AcceptCurrentOdds copia CurrentOdds para SelectedOdds em todas as apostas
func (s *Store) AcceptCurrentOdds() {
	s.mu.Lock()
	var changed []PendingBet
	for i := range s.bets {
		if s.bets[i].Stale() {
			s.bets[i].SelectedOdds = s.bets[i].CurrentOdds
			changed = append(changed, s.bets[i])
		}
	}
	s.mu.Unlock()

	if len(changed) == 0 {
		return
	}
	s.emit(Change{Kind: ChangeAccepted, Bets: changed})
}

// Patch aplica um snapshot do evento às apostas que o referenciam.
// Só escreve CurrentOdds, MarketStatus, Degraded e Version, e só quando mudaram.
// Retorna as apostas alteradas.
func (s *Store) Patch(ev events.OddsUpdate) []PendingBet {
	s.mu.Lock()
	var changed []PendingBet
	for i := range s.bets {
		b := &s.bets[i]
		if b.EventID != ev.EventID {
			continue
		}
		dirty := false
		if odds := OddsFor(ev, b.Outcome); odds.IsPositive() && !odds.Equal(b.CurrentOdds) {
			b.CurrentOdds = odds
			dirty = true
		}
		if st := StatusFor(ev, b.Outcome); st != MarketUnknown && st != b.MarketStatus {
			b.MarketStatus = st
			dirty = true
		}
		if b.Degraded {
			b.Degraded = false
			dirty = true
		}
		if ev.Version != 0 && ev.Version != b.Version {
			b.Version = ev.Version
		}
		if dirty {
			changed = append(changed, *b)
		}
	}
	s.mu.Unlock()

	if len(changed) > 0 {
		s.emit(Change{Kind: ChangePatched, Bets: changed})
	}
	return changed
}

// MarkDegraded sinaliza que o evento não pôde ser carregado; odds e status ficam como estão
func (s *Store) MarkDegraded(eventID string) []PendingBet {
	s.mu.Lock()
	var changed []PendingBet
	for i := range s.bets {
		if s.bets[i].EventID == eventID && !s.bets[i].Degraded {
			s.bets[i].Degraded = true
			changed = append(changed, s.bets[i])
		}
	}
	s.mu.Unlock()

	if len(changed) > 0 {
		s.emit(Change{Kind: ChangePatched, Bets: changed})
	}
	return changed
}
