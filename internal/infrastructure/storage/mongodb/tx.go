package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/JosipBeDa/alchemy/internal/core/atomic"
)

// Mongo transactions are session-rooted: the transaction lives on a
// distinct session object obtained from the client, and both the session
// and the connection it pins must stay alive until commit or abort. The Tx
// below owns the session; collection operations join the transaction by
// resolving the session from the bound context.

// Compile-time check against the coordinator contract.
var _ atomic.Beginner = (*TxBeginner)(nil)

// TxBeginner starts session-rooted transactions for atomic scopes.
type TxBeginner struct {
	client *Client
}

// NewTxBeginner creates a Beginner over the client.
func NewTxBeginner(client *Client) *TxBeginner {
	return &TxBeginner{client: client}
}

// Name identifies the backend.
func (b *TxBeginner) Name() string { return backendName }

// Begin starts a session and a transaction on it. The session is ended
// immediately when the transaction cannot start.
func (b *TxBeginner) Begin(ctx context.Context) (atomic.Tx, error) {
	sess, err := b.client.client.StartSession(options.Session())
	if err != nil {
		return nil, err
	}

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Majority()).
		SetWriteConcern(writeconcern.Majority())

	if err := sess.StartTransaction(txOpts); err != nil {
		sess.EndSession(ctx)
		return nil, err
	}

	return &Tx{sess: sess}, nil
}

// Tx is an in-flight session-rooted transaction.
type Tx struct {
	sess mongo.Session
}

// Bind attaches the session to ctx so collection operations join the
// transaction.
func (t *Tx) Bind(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, t.sess)
}

// Commit commits the transaction and ends the session.
func (t *Tx) Commit(ctx context.Context) error {
	defer t.sess.EndSession(ctx)
	return t.sess.CommitTransaction(ctx)
}

// Abort aborts the transaction and ends the session.
func (t *Tx) Abort(ctx context.Context) error {
	defer t.sess.EndSession(ctx)
	return t.sess.AbortTransaction(ctx)
}
