package db

import (
	klease "github.com/omniphi/orchestrator/pkg/domain/lease/db"
	knode "github.com/omniphi/orchestrator/pkg/domain/node/db"
	korder "github.com/omniphi/orchestrator/pkg/domain/order/db"
	kschema "github.com/omniphi/orchestrator/pkg/domain/schema/db"
	ksetup "github.com/omniphi/orchestrator/pkg/domain/setup/db"
)

type OmniDatabase interface {
	Setup() ksetup.SetupInterface
	Node() knode.NodeInterface
	Order() korder.OrderInterface
	Lease() klease.LeaseInterface
	Schema() kschema.SchemaInterface
	Close() error
}
