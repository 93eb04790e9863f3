// Package tables stores projects, tasks and labels as Azure Table Storage
// entities.
package tables

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/Joseda-hg/lazyproject/internal/store"
)

type TableNames struct {
	Projects   string
	Tasks      string
	Labels     string
	TaskLabels string
}

func DefaultTableNames() TableNames {
	return TableNames{
		Projects:   "projects",
		Tasks:      "tasks",
		Labels:     "labels",
		TaskLabels: "tasklabels",
	}
}

// tableClient is the subset of *aztables.Client the store uses.
type tableClient interface {
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
}

// Store implements store.Store on top of four tables.
type Store struct {
	projects   tableClient
	tasks      tableClient
	labels     tableClient
	taskLabels tableClient
}

var _ store.Store = (*Store)(nil)

// New creates a Store from a storage account connection string.
func New(connStr string, names TableNames) (*Store, error) {
	options := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &options)
	if err != nil {
		return nil, err
	}
	return newStore(
		svc.NewClient(names.Projects),
		svc.NewClient(names.Tasks),
		svc.NewClient(names.Labels),
		svc.NewClient(names.TaskLabels),
	), nil
}

func newStore(projects, tasks, labels, taskLabels tableClient) *Store {
	return &Store{projects: projects, tasks: tasks, labels: labels, taskLabels: taskLabels}
}

// EnsureTables creates any table that does not exist yet.
func (s *Store) EnsureTables(ctx context.Context) error {
	for _, client := range []tableClient{s.projects, s.tasks, s.labels, s.taskLabels} {
		if _, err := client.CreateTable(ctx, nil); err != nil {
			var respErr *azcore.ResponseError
			if errors.As(err, &respErr) && (respErr.ErrorCode == string(aztables.TableAlreadyExists) || respErr.StatusCode == http.StatusConflict) {
				continue
			}
			return err
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

func translate(err error) error {
	if isNotFound(err) {
		return store.ErrNotFound
	}
	return err
}

// query collects every entity matching filter.
func query(ctx context.Context, client tableClient, filter string) ([][]byte, error) {
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	entities := [][]byte{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		entities = append(entities, resp.Entities...)
	}
	return entities, nil
}

// queryAny runs one query per chunk of values, OR-ing field equality inside
// a chunk.
func queryAny(ctx context.Context, client tableClient, field string, values []string) ([][]byte, error) {
	entities := [][]byte{}
	for _, chunk := range chunks(values, maxFilterValues) {
		page, err := query(ctx, client, anyOf(field, chunk))
		if err != nil {
			return nil, err
		}
		entities = append(entities, page...)
	}
	return entities, nil
}

// findByRowKey returns the entity with the given row key in any partition.
func findByRowKey(ctx context.Context, client tableClient, rowKey string) ([]byte, error) {
	entities, err := query(ctx, client, eq("RowKey", rowKey))
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, store.ErrNotFound
	}
	return entities[0], nil
}
