package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/projecttree"
	"github.com/Joseda-hg/lazyproject/internal/store"
)

// ProjectPatch changes the fields that are set. A ParentID pointing at an
// empty string clears the parent.
type ProjectPatch struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parentId,omitempty"`
}

func (s *Service) CreateProject(ctx context.Context, ownerID, name, parentID string) (model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Project{}, invalid("name", "project name is required")
	}
	if ownerID == "" {
		return model.Project{}, invalid("ownerId", "owner is required")
	}
	if parentID != "" {
		if _, err := s.ownedProject(ctx, ownerID, parentID); err != nil {
			return model.Project{}, unknownReference("parentId", "parent project", err)
		}
	}

	project, err := s.store.CreateProject(ctx, model.Project{Name: name, OwnerID: ownerID, ParentID: parentID})
	if err != nil {
		s.log.WithField("owner", ownerID).WithError(err).Error("create project")
		return model.Project{}, fmt.Errorf("create project: %w", err)
	}
	s.log.WithFields(logrus.Fields{"owner": ownerID, "project": project.ID}).Debug("project created")
	return project, nil
}

// UpdateProject renames or reparents a project. Reparenting under the project
// itself or one of its descendants fails with ErrCyclicParent.
func (s *Service) UpdateProject(ctx context.Context, ownerID, id string, patch ProjectPatch) (model.Project, error) {
	project, err := s.ownedProject(ctx, ownerID, id)
	if err != nil {
		return model.Project{}, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return model.Project{}, invalid("name", "project name is required")
		}
		project.Name = name
	}

	if patch.ParentID != nil && *patch.ParentID != project.ParentID {
		parentID := *patch.ParentID
		if parentID != "" {
			if parentID == project.ID {
				return model.Project{}, ErrCyclicParent
			}
			if _, err := s.ownedProject(ctx, ownerID, parentID); err != nil {
				return model.Project{}, unknownReference("parentId", "parent project", err)
			}
			projects, err := s.store.ListProjects(ctx, ownerID)
			if err != nil {
				return model.Project{}, fmt.Errorf("list projects: %w", err)
			}
			if projecttree.WouldCycle(projects, project.ID, parentID) {
				return model.Project{}, ErrCyclicParent
			}
		}
		project.ParentID = parentID
	}

	updated, err := s.store.UpdateProject(ctx, project)
	if err != nil {
		s.log.WithFields(logrus.Fields{"owner": ownerID, "project": id}).WithError(err).Error("update project")
		return model.Project{}, fmt.Errorf("update project: %w", err)
	}
	return updated, nil
}

// DeleteProject removes only the project record. Children whose parent no
// longer resolves are shown as roots.
func (s *Service) DeleteProject(ctx context.Context, ownerID, id string) error {
	if _, err := s.ownedProject(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		s.log.WithFields(logrus.Fields{"owner": ownerID, "project": id}).WithError(err).Error("delete project")
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *Service) ownedProject(ctx context.Context, ownerID, id string) (model.Project, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, fmt.Errorf("get project: %w", err)
	}
	if project.OwnerID != ownerID {
		return model.Project{}, fmt.Errorf("get project: %w", notOwned(store.KindProject, id))
	}
	return project, nil
}

// unknownReference turns a missing referenced record into a validation error.
func unknownReference(field, what string, err error) error {
	if store.IsNotFound(err) {
		return invalid(field, what+" does not exist")
	}
	return err
}
