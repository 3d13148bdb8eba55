package orchestrator

import (
	"fmt"

	"github.com/maastricht-university/chatrisk/model"
	"github.com/maastricht-university/chatrisk/output"
)

func persist(path string, recs []model.ScoredRecord) error {
	if err := model.CheckOrdered(recs); err != nil {
		return err
	}
	if err := output.WriteFile(path, recs); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
