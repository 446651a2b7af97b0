package storage

import (
	"context"
	"fmt"

	"github.com/ramonehamilton/swu-binder/internal/cards"
)

type testCatalogs struct{}

func (testCatalogs) Get(ctx context.Context, setKey string) (*cards.Catalog, error) {
	if setKey != "SOR" {
		return nil, fmt.Errorf("unknown set %s", setKey)
	}
	return cards.BuildCatalog("SOR", []cards.Card{{Name: "Luke Skywalker", Number: 1, Type: "Unit"}}), nil
}
