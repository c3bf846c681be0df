package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	"github.com/noah-isme/senja-literasi-api/internal/repository"
	"github.com/noah-isme/senja-literasi-api/pkg/cache"
	"github.com/noah-isme/senja-literasi-api/pkg/config"
	"github.com/noah-isme/senja-literasi-api/pkg/database"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
	"github.com/noah-isme/senja-literasi-api/pkg/sheets"
)

type cacheReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}

type diff struct {
	Collection  models.Collection
	RemoteCount int
	LocalCount  int
	RemoteOnly  []string
	LocalOnly   []string
	Error       error
}

// keyFields names the column that identifies a row in each sheet.
var keyFields = map[models.Collection]string{
	models.CollectionUsers:       "id",
	models.CollectionStudents:    "nisn",
	models.CollectionMaterials:   "id",
	models.CollectionSubmissions: "id",
	models.CollectionSettings:    "key",
}

func main() {
	var (
		timeout time.Duration
		strict  bool
	)
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.BoolVar(&strict, "strict", false, "Exit with status 1 when any collection differs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	client := sheets.NewClient(cfg.Sheets, nil)
	if !client.Configured() {
		log.Fatal("SHEETS_API_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	local, err := openCache(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open local cache: %v", err)
	}
	defer local.Close() //nolint:errcheck

	remote, err := client.FetchAll(ctx)
	if err != nil {
		log.Fatalf("failed to fetch remote sheets: %v", err)
	}

	differs := 0
	results := make([]diff, 0, len(models.Collections))
	for _, collection := range models.Collections {
		res := compare(ctx, collection, remote, local)
		if res.Error != nil || res.RemoteCount != res.LocalCount || len(res.RemoteOnly) > 0 || len(res.LocalOnly) > 0 {
			differs++
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Collections differing: %d of %d\n", differs, len(results))
	if strict && differs > 0 {
		os.Exit(1)
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cacheReader, error) {
	switch cfg.Cache.Driver {
	case config.CacheDriverRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisCacheRepository(client, nil), nil
	case config.CacheDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return repository.NewSQLCacheRepository(db), nil
	case config.CacheDriverSQLite:
		db, err := database.NewSQLite(cfg.Cache.SQLitePath)
		if err != nil {
			return nil, err
		}
		return repository.NewSQLCacheRepository(db), nil
	default:
		return nil, fmt.Errorf("cache driver %q keeps nothing between runs", cfg.Cache.Driver)
	}
}

func compare(ctx context.Context, collection models.Collection, remote map[string]json.RawMessage, local cacheReader) diff {
	res := diff{Collection: collection}

	var remoteRows []models.Record
	if raw, ok := remote[collection.RemoteKey()]; ok {
		if err := json.Unmarshal(raw, &remoteRows); err != nil {
			res.Error = fmt.Errorf("remote %s is not an array: %w", collection.RemoteKey(), err)
			return res
		}
	}

	var localRows []models.Record
	payload, err := local.Get(ctx, collection.CacheKey())
	switch {
	case errors.Is(err, appErrors.ErrCacheMiss):
	case err != nil:
		res.Error = fmt.Errorf("read local %s: %w", collection.CacheKey(), err)
		return res
	default:
		if err := json.Unmarshal(payload, &localRows); err != nil {
			res.Error = fmt.Errorf("local %s is not an array: %w", collection.CacheKey(), err)
			return res
		}
	}

	res.RemoteCount = len(remoteRows)
	res.LocalCount = len(localRows)
	field := keyFields[collection]
	remoteKeys := keySet(remoteRows, field)
	localKeys := keySet(localRows, field)
	res.RemoteOnly = missingFrom(remoteKeys, localKeys)
	res.LocalOnly = missingFrom(localKeys, remoteKeys)
	return res
}

func keySet(rows []models.Record, field string) map[string]struct{} {
	keys := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if v, ok := row[field]; ok && v != nil {
			keys[fmt.Sprint(v)] = struct{}{}
		}
	}
	return keys
}

func missingFrom(source, other map[string]struct{}) []string {
	var out []string
	for k := range source {
		if _, ok := other[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func printReport(results []diff) {
	fmt.Println("Sync Diff Report")
	fmt.Println("================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if res.RemoteCount != res.LocalCount || len(res.RemoteOnly) > 0 || len(res.LocalOnly) > 0 {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s\n", status, res.Collection)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Remote rows: %d | Local rows: %d\n", res.RemoteCount, res.LocalCount)
		if len(res.RemoteOnly) > 0 {
			fmt.Printf("  Only remote: %v\n", res.RemoteOnly)
		}
		if len(res.LocalOnly) > 0 {
			fmt.Printf("  Only local: %v\n", res.LocalOnly)
		}
	}
}
