//go:build integration

// Integration test for the client.
// Requires a running server: task run
//
// Run: go test -tags=integration ./pkg/farmclient/
package farmclient_test

import (
	"context"
	"os"
	"testing"

	"github.com/farmshopfinder/farmmap/pkg/farmclient"
)

func baseURL() string {
	if u := os.Getenv("FARMMAP_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8086"
}

func client() *farmclient.Client {
	return farmclient.New(baseURL())
}

func TestHealth(t *testing.T) {
	h, err := client().Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != "ok" {
		t.Fatalf("status=%q, want ok", h.Status)
	}
}

func TestListFarms(t *testing.T) {
	page, err := client().ListFarms(context.Background(), "", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) > page.Total {
		t.Fatalf("page larger than total: %d > %d", len(page.Data), page.Total)
	}
}

func TestClustersUK(t *testing.T) {
	cl, err := client().GetClusters(context.Background(), -8.6, 49.9, 1.8, 60.9, 6)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range cl.Nodes {
		if n.Count < 1 {
			t.Fatalf("node %s has count %d", n.ID, n.Count)
		}
	}
}
