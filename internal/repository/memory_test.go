package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mtlprog/taskpulse/internal/domain"
)

type MemoryRepositoryTestSuite struct {
	suite.Suite
	dispatcher *recordingDispatcher
	repo       *MemoryTaskRepository
}

func (s *MemoryRepositoryTestSuite) SetupTest() {
	s.dispatcher = &recordingDispatcher{}
	s.repo = NewMemoryTaskRepository(s.dispatcher)
}

func (s *MemoryRepositoryTestSuite) newTask(priority domain.TaskPriority, due time.Duration) *domain.Task {
	title, err := domain.NewTitle("task")
	s.Require().NoError(err)
	dueDate, err := domain.NewDueDate(time.Now().Add(due))
	s.Require().NoError(err)
	task, err := domain.NewTask(title, priority, dueDate, domain.Description{})
	s.Require().NoError(err)
	return task
}

// TestRoundTrip tests that a stored task comes back equal and without events.
func (s *MemoryRepositoryTestSuite) TestRoundTrip() {
	ctx := context.Background()
	task := newTestTask(s.T(), "hello")
	s.Require().NoError(s.repo.Create(ctx, task))
	s.Equal([]string{domain.EventTaskCreated, domain.EventCommentAdded}, s.dispatcher.names())

	loaded, err := s.repo.FindByIDWithComments(ctx, task.ID())
	s.Require().NoError(err)
	s.Equal(task.State(), loaded.State())
	s.Empty(loaded.PendingEvents())

	bare, err := s.repo.FindByID(ctx, task.ID())
	s.Require().NoError(err)
	s.Zero(bare.CommentCount())
}

// TestLoadedTaskIsIsolated tests that mutating a loaded task does not touch storage until Update.
func (s *MemoryRepositoryTestSuite) TestLoadedTaskIsIsolated() {
	ctx := context.Background()
	task := newTestTask(s.T(), "hello")
	s.Require().NoError(s.repo.Create(ctx, task))

	loaded, err := s.repo.FindByIDWithComments(ctx, task.ID())
	s.Require().NoError(err)
	s.Require().NoError(loaded.RemoveComment(loaded.Comments()[0].ID()))

	again, err := s.repo.FindByIDWithComments(ctx, task.ID())
	s.Require().NoError(err)
	s.Equal(1, again.CommentCount())

	s.Require().NoError(s.repo.Update(ctx, loaded))
	again, err = s.repo.FindByIDWithComments(ctx, task.ID())
	s.Require().NoError(err)
	s.Zero(again.CommentCount())
}

// TestUpdateMissing tests that updating an unknown task fails without dispatching.
func (s *MemoryRepositoryTestSuite) TestUpdateMissing() {
	task := newTestTask(s.T())
	err := s.repo.Update(context.Background(), task)
	s.ErrorIs(err, domain.ErrTaskNotFound)
	s.Empty(s.dispatcher.names())
	s.Len(task.PendingEvents(), 1)
}

// TestFindAllOrderingAndFilters tests due-date ordering and status/priority filters.
func (s *MemoryRepositoryTestSuite) TestFindAllOrderingAndFilters() {
	ctx := context.Background()
	late := s.newTask(domain.TaskPriorityLow, 96*time.Hour)
	soon := s.newTask(domain.TaskPriorityHigh, 24*time.Hour)
	mid := s.newTask(domain.TaskPriorityHigh, 48*time.Hour)
	s.Require().NoError(mid.Start())

	for _, t := range []*domain.Task{late, soon, mid} {
		s.Require().NoError(s.repo.Create(ctx, t))
	}

	all, err := s.repo.FindAll(ctx, TaskFilters{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]string{soon.ID(), mid.ID(), late.ID()}, []string{all[0].ID(), all[1].ID(), all[2].ID()})

	high := domain.TaskPriorityHigh
	inProgress := domain.TaskStatusInProgress
	filtered, err := s.repo.FindAll(ctx, TaskFilters{Priority: &high, Status: &inProgress})
	s.Require().NoError(err)
	s.Require().Len(filtered, 1)
	s.Equal(mid.ID(), filtered[0].ID())
}

// TestFindBySpecification tests in-memory filtering with composed specifications.
func (s *MemoryRepositoryTestSuite) TestFindBySpecification() {
	ctx := context.Background()
	done := s.newTask(domain.TaskPriorityHigh, 24*time.Hour)
	s.Require().NoError(done.Start())
	s.Require().NoError(done.Complete())
	open := s.newTask(domain.TaskPriorityHigh, 24*time.Hour)
	low := s.newTask(domain.TaskPriorityLow, 24*time.Hour)

	for _, t := range []*domain.Task{done, open, low} {
		s.Require().NoError(s.repo.Create(ctx, t))
	}

	spec := domain.ActiveTasks[*domain.Task]().And(domain.HighPriorityTasks[*domain.Task]())
	found, err := s.repo.FindBySpecification(ctx, spec)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(open.ID(), found[0].ID())
}

// TestDeleteAndStats tests delete results and the aggregate counts.
func (s *MemoryRepositoryTestSuite) TestDeleteAndStats() {
	ctx := context.Background()
	a := s.newTask(domain.TaskPriorityHigh, 24*time.Hour)
	b := s.newTask(domain.TaskPriorityLow, 24*time.Hour)
	s.Require().NoError(s.repo.Create(ctx, a))
	s.Require().NoError(s.repo.Create(ctx, b))

	stats, err := s.repo.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.Total)
	s.Equal(2, stats.ByStatus[domain.TaskStatusNew])
	s.Equal(1, stats.ByPriority[domain.TaskPriorityHigh])
	s.Zero(stats.Overdue)

	existed, err := s.repo.Delete(ctx, a.ID())
	s.Require().NoError(err)
	s.True(existed)

	existed, err = s.repo.Delete(ctx, a.ID())
	s.Require().NoError(err)
	s.False(existed)

	_, err = s.repo.FindByID(ctx, a.ID())
	s.ErrorIs(err, domain.ErrTaskNotFound)
}

func TestMemoryRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryRepositoryTestSuite))
}
