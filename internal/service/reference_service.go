package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/rec-portal/internal/backend"
	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/internal/query"
)

// References are the lookup lists offered by the request form. A nil or
// empty list means none are available, which the form renders as a placeholder.
type References struct {
	Professors   []models.UserRef
	RequestTypes []models.RequestType
}

// ReferenceService loads the form's lookup lists.
type ReferenceService struct {
	transport query.Transport
	logger    *zap.Logger
}

// NewReferenceService constructs a reference service.
func NewReferenceService(transport query.Transport, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{transport: transport, logger: logger}
}

// Load fetches professors and request types concurrently. Each failure is
// logged on its own and leaves only its list empty.
func (s *ReferenceService) Load(ctx context.Context) References {
	var refs References
	var g errgroup.Group

	g.Go(func() error {
		professors, err := fetchList[models.UserRef](ctx, s.transport, EndpointProfessors)
		if err != nil {
			s.logger.Error("Error fetching professors", zap.Error(err))
			return nil
		}
		refs.Professors = professors
		return nil
	})
	g.Go(func() error {
		requestTypes, err := fetchList[models.RequestType](ctx, s.transport, EndpointRequestTypesAll)
		if err != nil {
			s.logger.Error("Error fetching request types", zap.Error(err))
			return nil
		}
		refs.RequestTypes = requestTypes
		return nil
	})

	_ = g.Wait()
	return refs
}

// fetchList returns nothing on failure, never a partially decoded list.
func fetchList[T any](ctx context.Context, transport query.Transport, endpoint string) ([]T, error) {
	raw, err := transport.Do(ctx, backend.Descriptor{URL: endpoint, Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var list []T
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}
