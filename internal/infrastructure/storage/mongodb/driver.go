package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	"github.com/JosipBeDa/alchemy/internal/core/driver"
)

const backendName = "mongo"

// Compile-time check that Driver satisfies the driver contract.
var _ driver.Driver[*mongo.Database] = (*Driver)(nil)

// Driver binds the Mongo client to the database handle it produces.
// Checkout of physical connections happens inside the client per
// operation; Connect verifies the deployment is reachable so transport
// failures surface here rather than mid-operation.
type Driver struct {
	client *Client
}

// NewDriver creates a driver over the shared client.
func NewDriver(client *Client) *Driver {
	return &Driver{client: client}
}

// Name identifies the backend.
func (d *Driver) Name() string { return backendName }

// Client exposes the underlying client for the transaction beginner.
func (d *Driver) Client() *Client { return d.client }

// Connect returns the bound database handle after a reachability check.
func (d *Driver) Connect(ctx context.Context) (*mongo.Database, error) {
	if err := d.client.client.Ping(ctx, nil); err != nil {
		return nil, apperror.NewConnectionFailed(backendName, err)
	}
	return d.client.Database(), nil
}
