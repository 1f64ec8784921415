package main

import (
	"gorm.io/gorm"

	"github.com/taskgrid/engine/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Task{},
		&models.TaskDependency{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := enableUUIDExtension(db); err != nil {
		return err
	}

	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}

	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addSelfDependencyCheck,
		addTaskIndexes,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// enableUUIDExtension ensures UUID generation is available
func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addSelfDependencyCheck rejects self-loop edges at the schema level. The
// service layer refuses them too; the constraint catches writes that bypass it.
func addSelfDependencyCheck(db *gorm.DB) error {
	if err := db.Exec(`
		ALTER TABLE task_dependencies
		DROP CONSTRAINT IF EXISTS chk_no_self_dependency
	`).Error; err != nil {
		return err
	}
	return db.Exec(`
		ALTER TABLE task_dependencies
		ADD CONSTRAINT chk_no_self_dependency CHECK (task_id <> dependency_id)
	`).Error
}

// addTaskIndexes adds indexes the list and sweep queries lean on
func addTaskIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_tasks_assignee_status
		 ON tasks(assignee_id, status)
		 WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due_date
		 ON tasks(due_date)
		 WHERE deleted_at IS NULL`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return err
		}
	}
	return nil
}
