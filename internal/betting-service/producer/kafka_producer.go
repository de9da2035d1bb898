package producer

import (
	"context"
	"strconv"
	"time"

	kafkax "github.com/radieske/betting-ledger/internal/shared/kafka"
	"github.com/radieske/betting-ledger/pkg/contracts/events"
)

// Publisher publica os eventos do ledger após o commit
type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
	PublishLedgerTransaction(ctx context.Context, e events.LedgerTransaction) error
}

// Topics agrupa os tópicos de destino de cada evento
type Topics struct {
	BetPlaced          string
	BetSettled         string
	LedgerTransactions string
}

// KafkaPublisher usa o user id como chave, mantendo a ordem dos eventos de
// um mesmo usuário dentro da partição
type KafkaPublisher struct {
	Writer kafkax.MessageWriter
	Topics Topics
	now    func() time.Time
}

func NewKafkaPublisher(w kafkax.MessageWriter, topics Topics) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topics: topics, now: time.Now}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = p.now().UnixMilli()
	return kafkax.WriteJSON(ctx, p.Writer, p.Topics.BetPlaced, userKey(e.UserID), e)
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	e.TsUnixMs = p.now().UnixMilli()
	return kafkax.WriteJSON(ctx, p.Writer, p.Topics.BetSettled, userKey(e.UserID), e)
}

func (p *KafkaPublisher) PublishLedgerTransaction(ctx context.Context, e events.LedgerTransaction) error {
	e.TsUnixMs = p.now().UnixMilli()
	return kafkax.WriteJSON(ctx, p.Writer, p.Topics.LedgerTransactions, userKey(e.UserID), e)
}

func userKey(id int64) string { return strconv.FormatInt(id, 10) }

// Noop descarta os eventos (EVENTS_ENABLED=false e testes)
type Noop struct{}

func (Noop) PublishBetPlaced(context.Context, events.BetPlaced) error { return nil }

func (Noop) PublishBetSettled(context.Context, events.BetSettled) error { return nil }

func (Noop) PublishLedgerTransaction(context.Context, events.LedgerTransaction) error { return nil }
