package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/modules/explain"
	"github.com/yungbote/fraudguard-backend/internal/platform/apierr"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type ExplanationView struct {
	*types.FraudExplanation
	RiskIncreasing []types.Feature `json:"risk_increasing"`
	RiskDecreasing []types.Feature `json:"risk_decreasing"`
}

type NarrativeView struct {
	TransactionID string `json:"transaction_id"`
	DatasetID     uint   `json:"dataset_id"`
	Narrative     string `json:"narrative"`
}

type FeaturesView struct {
	TransactionID string          `json:"transaction_id"`
	DatasetID     uint            `json:"dataset_id"`
	Features      []types.Feature `json:"features"`
	BaseValue     *float64        `json:"base_value"`
}

type ExplanationService interface {
	Show(ctx context.Context, txID string, datasetID uint) (*ExplanationView, error)
	Narrative(ctx context.Context, txID string, datasetID uint) (*NarrativeView, error)
	Features(ctx context.Context, txID string, datasetID uint) (*FeaturesView, error)
}

type explanationService struct {
	log          *logger.Logger
	explanations repos.FraudExplanationRepo
	datasets     repos.DatasetRepo
}

func NewExplanationService(baseLog *logger.Logger, explanations repos.FraudExplanationRepo, datasets repos.DatasetRepo) ExplanationService {
	return &explanationService{
		log:          baseLog.With("service", "ExplanationService"),
		explanations: explanations,
		datasets:     datasets,
	}
}

// lookup resolves the explanation and hides rows on datasets the caller cannot see.
func (s *explanationService) lookup(ctx context.Context, txID string, datasetID uint) (*types.FraudExplanation, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == 0 {
		return nil, errUnauthenticated
	}
	txID = strings.TrimSpace(txID)
	if txID == "" {
		return nil, apierr.Validation(map[string]string{"transaction_id": "transaction_id is required"})
	}
	dbc := dbctx.Context{Ctx: ctx}
	row, err := s.explanations.GetByTransaction(dbc, txID, datasetID)
	if err != nil {
		return nil, err
	}
	notFound := apierr.NotFound("explanation_not_found", fmt.Errorf("no explanation for transaction %q", txID))
	if row == nil {
		return nil, notFound
	}
	if !rd.IsPrivileged() {
		ds, err := s.datasets.GetByID(dbc, row.DatasetID)
		if err != nil {
			return nil, err
		}
		if ds == nil || ds.UploadedBy != rd.UserID {
			return nil, notFound
		}
	}
	return row, nil
}

func (s *explanationService) Show(ctx context.Context, txID string, datasetID uint) (*ExplanationView, error) {
	row, err := s.lookup(ctx, txID, datasetID)
	if err != nil {
		return nil, err
	}
	features := []types.Feature(row.TopFeatures)
	return &ExplanationView{
		FraudExplanation: row,
		RiskIncreasing:   explain.RiskIncreasing(features),
		RiskDecreasing:   explain.RiskDecreasing(features),
	}, nil
}

func (s *explanationService) Narrative(ctx context.Context, txID string, datasetID uint) (*NarrativeView, error) {
	row, err := s.lookup(ctx, txID, datasetID)
	if err != nil {
		return nil, err
	}
	narrative := row.Narrative
	if narrative == "" {
		narrative = explain.Compose(row.TopFeatures)
	}
	return &NarrativeView{TransactionID: row.TransactionID, DatasetID: row.DatasetID, Narrative: narrative}, nil
}

func (s *explanationService) Features(ctx context.Context, txID string, datasetID uint) (*FeaturesView, error) {
	row, err := s.lookup(ctx, txID, datasetID)
	if err != nil {
		return nil, err
	}
	return &FeaturesView{
		TransactionID: row.TransactionID,
		DatasetID:     row.DatasetID,
		Features:      explain.SortByImpact(row.TopFeatures),
		BaseValue:     row.BaseValue,
	}, nil
}
