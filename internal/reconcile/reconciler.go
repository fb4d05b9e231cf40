package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/betwise-platform/internal/gateway"
	"github.com/radieske/betwise-platform/internal/payment-service/repo"
	"github.com/radieske/betwise-platform/internal/settlement"
)

// Outcome é o desfecho de uma tentativa de resolução.
type Outcome string

const (
	// Liquidação aplicada nesta chamada
	OutcomeSettled Outcome = "settled"
	// Gateway reportou falha; registro marcado como failed
	OutcomeFailed Outcome = "failed"
	// Gateway ainda em processamento; registro continua pending
	OutcomePending Outcome = "pending"
	// Registro já estava terminal; entrega duplicada, nada a fazer
	OutcomeAlreadyFinal Outcome = "already_final"
	// Nenhum registro local corresponde; responde sucesso pro gateway
	// parar de reenviar, mas fica no log pro operador
	OutcomeUnknownReference Outcome = "unknown_reference"
)

// TransactionStore localiza o registro local por qualquer um dos dois ids.
type TransactionStore interface {
	FindByReference(ctx context.Context, reference string) (*repo.PaymentTransaction, error)
	FindByGatewayOrderID(ctx context.Context, orderID string) (*repo.PaymentTransaction, error)
}

// Settler é a fatia do settlement.Engine que o reconciliador usa.
type Settler interface {
	CompleteDeposit(ctx context.Context, reference string) error
	CompleteSubscription(ctx context.Context, reference string) error
	MarkFailed(ctx context.Context, reference string) error
}

// Reconciler resolve o estado de uma payment_transaction contra o gateway.
// É o mesmo fluxo pros três gatilhos (retorno do navegador, IPN e o worker
// de varredura), todos idempotentes entre si.
type Reconciler struct {
	log     *zap.Logger
	store   TransactionStore
	gw      gateway.Client
	settler Settler
}

func New(log *zap.Logger, store TransactionStore, gw gateway.Client, settler Settler) *Reconciler {
	return &Reconciler{log: log, store: store, gw: gw, settler: settler}
}

// Resolve localiza a transação (por referência ou por order id do gateway),
// consulta o status autoritativo e aplica a transição devida.
//
// Erro só é devolvido quando a liquidação em si falhou: nesse caso o
// registro continua pending e uma reentrega pode tentar de novo.
func (r *Reconciler) Resolve(ctx context.Context, reference, gatewayOrderID string) (Outcome, error) {
	tx, err := r.lookup(ctx, reference, gatewayOrderID)
	if err != nil {
		return "", err
	}
	if tx == nil {
		r.log.Warn("callback for unknown transaction",
			zap.String("reference", reference),
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return OutcomeUnknownReference, nil
	}

	// Guarda de idempotência contra entrega duplicada
	if tx.Terminal() {
		return OutcomeAlreadyFinal, nil
	}

	orderID := tx.GatewayOrderID
	if orderID == "" {
		orderID = gatewayOrderID
	}
	if orderID == "" {
		// Sem id de gateway não há o que consultar; segue pending
		return OutcomePending, nil
	}

	// Status empurrado pelo IPN é só um aviso; o autoritativo vem da consulta
	status, err := r.gw.QueryStatus(ctx, orderID)
	if err != nil {
		r.log.Warn("gateway status query failed, leaving pending",
			zap.String("reference", tx.ID),
			zap.Error(err),
		)
		return OutcomePending, nil
	}

	switch status {
	case gateway.StatusCompleted:
		if err := r.settle(ctx, tx); err != nil {
			if errors.Is(err, settlement.ErrAlreadySettled) {
				return OutcomeAlreadyFinal, nil
			}
			// Dinheiro confirmado no gateway e não aplicado: não marca
			// completed, loga alto e deixa a reentrega tentar de novo
			r.log.Error("settlement failed for completed payment",
				zap.String("reference", tx.ID),
				zap.String("type", tx.Type),
				zap.Error(err),
			)
			return "", err
		}
		return OutcomeSettled, nil

	case gateway.StatusFailed:
		if err := r.settler.MarkFailed(ctx, tx.ID); err != nil {
			return "", err
		}
		return OutcomeFailed, nil

	default:
		return OutcomePending, nil
	}
}

func (r *Reconciler) lookup(ctx context.Context, reference, gatewayOrderID string) (*repo.PaymentTransaction, error) {
	if reference != "" {
		tx, err := r.store.FindByReference(ctx, reference)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}
	if gatewayOrderID != "" {
		tx, err := r.store.FindByGatewayOrderID(ctx, gatewayOrderID)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (r *Reconciler) settle(ctx context.Context, tx *repo.PaymentTransaction) error {
	switch tx.Type {
	case repo.TypeDeposit:
		return r.settler.CompleteDeposit(ctx, tx.ID)
	case repo.TypeSubscription:
		return r.settler.CompleteSubscription(ctx, tx.ID)
	default:
		return fmt.Errorf("unknown payment type %q on %s", tx.Type, tx.ID)
	}
}
