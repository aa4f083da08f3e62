package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	kpool "github.com/omniphi/orchestrator/pkg/conn/db/postgres/pool"
	kpgschema "github.com/omniphi/orchestrator/pkg/db/postgres/schema"
	klease "github.com/omniphi/orchestrator/pkg/domain/lease/db"
	kpglease "github.com/omniphi/orchestrator/pkg/domain/lease/db/postgres"
	knode "github.com/omniphi/orchestrator/pkg/domain/node/db"
	kpgnode "github.com/omniphi/orchestrator/pkg/domain/node/db/postgres"
	dbInterface "github.com/omniphi/orchestrator/pkg/domain/omniphi/db"
	korder "github.com/omniphi/orchestrator/pkg/domain/order/db"
	kpgorder "github.com/omniphi/orchestrator/pkg/domain/order/db/postgres"
	kschema "github.com/omniphi/orchestrator/pkg/domain/schema/db"
	ksetup "github.com/omniphi/orchestrator/pkg/domain/setup/db"
	kpgsetup "github.com/omniphi/orchestrator/pkg/domain/setup/db/postgres"
	xe "github.com/omniphi/orchestrator/pkg/errors"
)

type omniDBPostgres struct {
	pool   *pgxpool.Pool
	setup  ksetup.SetupInterface
	node   knode.NodeInterface
	order  korder.OrderInterface
	lease  klease.LeaseInterface
	schema kschema.SchemaInterface
}

type Config struct {
	SchemaRepository string
}

func DefaultConfig() Config {
	return Config{}
}

type Option func(*Config) *Config

func WithSchemaRepository(repository string) Option {
	return func(c *Config) *Config {
		c.SchemaRepository = repository
		return c
	}
}

func New(
	ctx context.Context,
	url string,
	options ...Option,
) (dbInterface.OmniDatabase, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	c := DefaultConfig()
	for _, option := range options {
		c = *option(&c)
	}

	p := kpool.Wrap(pool)
	var schema kschema.SchemaInterface = kpgschema.Null()
	if c.SchemaRepository != "" {
		schema = kpgschema.New(p, c.SchemaRepository)
	}

	return &omniDBPostgres{
		pool:   pool,
		setup:  kpgsetup.New(p),
		node:   kpgnode.New(p),
		order:  kpgorder.New(p),
		lease:  kpglease.New(p),
		schema: schema,
	}, nil
}

func (o *omniDBPostgres) Setup() ksetup.SetupInterface {
	return o.setup
}

func (o *omniDBPostgres) Node() knode.NodeInterface {
	return o.node
}

func (o *omniDBPostgres) Order() korder.OrderInterface {
	return o.order
}

func (o *omniDBPostgres) Lease() klease.LeaseInterface {
	return o.lease
}

func (o *omniDBPostgres) Schema() kschema.SchemaInterface {
	return o.schema
}

func (o *omniDBPostgres) Close() error {
	o.pool.Close()
	return nil
}
