package planner

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/store"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

const DefaultLabelColor = "#808080"

type LabelPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// CreateLabel stores a label. An empty color falls back to DefaultLabelColor.
func (s *Service) CreateLabel(ctx context.Context, ownerID, name, color string) (model.Label, error) {
	if ownerID == "" {
		return model.Label{}, invalid("ownerId", "owner is required")
	}
	label, err := validLabel(model.Label{Name: name, Color: color, OwnerID: ownerID})
	if err != nil {
		return model.Label{}, err
	}
	created, err := s.store.CreateLabel(ctx, label)
	if err != nil {
		s.log.WithField("owner", ownerID).WithError(err).Error("create label")
		return model.Label{}, fmt.Errorf("create label: %w", err)
	}
	return created, nil
}

func (s *Service) UpdateLabel(ctx context.Context, ownerID, id string, patch LabelPatch) (model.Label, error) {
	label, err := s.ownedLabel(ctx, ownerID, id)
	if err != nil {
		return model.Label{}, err
	}
	if patch.Name != nil {
		label.Name = *patch.Name
	}
	if patch.Color != nil {
		label.Color = *patch.Color
	}
	label, err = validLabel(label)
	if err != nil {
		return model.Label{}, err
	}
	updated, err := s.store.UpdateLabel(ctx, label)
	if err != nil {
		s.log.WithFields(logrus.Fields{"owner": ownerID, "label": id}).WithError(err).Error("update label")
		return model.Label{}, fmt.Errorf("update label: %w", err)
	}
	return updated, nil
}

// DeleteLabel removes the label record only. Associations that still point
// at it are skipped when labels are resolved.
func (s *Service) DeleteLabel(ctx context.Context, ownerID, id string) error {
	if _, err := s.ownedLabel(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteLabel(ctx, id); err != nil {
		s.log.WithFields(logrus.Fields{"owner": ownerID, "label": id}).WithError(err).Error("delete label")
		return fmt.Errorf("delete label: %w", err)
	}
	return nil
}

func (s *Service) ownedLabel(ctx context.Context, ownerID, id string) (model.Label, error) {
	labels, err := s.store.GetLabels(ctx, []string{id})
	if err != nil {
		return model.Label{}, fmt.Errorf("get label: %w", err)
	}
	if len(labels) == 0 || labels[0].OwnerID != ownerID {
		return model.Label{}, fmt.Errorf("get label: %w", notOwned(store.KindLabel, id))
	}
	return labels[0], nil
}

// checkLabelRefs rejects ids that do not name a label of ownerID. Labels of
// other owners are reported the same way as missing ones.
func (s *Service) checkLabelRefs(ctx context.Context, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	labels, err := s.store.GetLabels(ctx, ids)
	if err != nil {
		return fmt.Errorf("get labels: %w", err)
	}
	owned := make(map[string]bool, len(labels))
	for _, label := range labels {
		if label.OwnerID == ownerID {
			owned[label.ID] = true
		}
	}
	for _, id := range ids {
		if !owned[id] {
			return invalid("labelIds", fmt.Sprintf("label %q does not exist", id))
		}
	}
	return nil
}

func validLabel(label model.Label) (model.Label, error) {
	label.Name = strings.TrimSpace(label.Name)
	if label.Name == "" {
		return model.Label{}, invalid("name", "label name is required")
	}
	label.Color = strings.TrimSpace(label.Color)
	if label.Color == "" {
		label.Color = DefaultLabelColor
	}
	if !colorPattern.MatchString(label.Color) {
		return model.Label{}, invalid("color", "color must be a hex value like #ff8800")
	}
	return label, nil
}
