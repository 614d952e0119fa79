package database

import (
	"errors"
	"fmt"
	"time"

	"custombuttons-restful/auth"
	"custombuttons-restful/config"
	"custombuttons-restful/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// SuperAdminRole holds every custom button capability.
	SuperAdminRole = "EvmRole-super_administrator"
	// ReadOnlyRole may list and read custom buttons.
	ReadOnlyRole = "EvmRole-user"
)

// Open connects to the configured database and migrates every model.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	level := logger.Warn
	if cfg.LogLevel == "debug" {
		level = logger.Info
	}
	// GORM logger configuration, routed through zap
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true, // Not found is an expected outcome for lookups
			ParameterizedQueries:      true, // Don't include params in the SQL log
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Database connection successful and migrations complete.", zap.String("driver", cfg.DatabaseDriver))
	return db, nil
}

// Migrate creates or updates the tables of every model, join tables included.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.CustomButton{},
		&models.User{}, &models.Role{}, &models.Permission{},
		&models.Dialog{}, &models.AutomateDomain{}, &models.AutomateInstance{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SeedInitialData creates the custom button capabilities, the default roles and
// an initial admin user. Existing rows are left alone, so it is safe to run on
// every start.
func SeedInitialData(db *gorm.DB, adminPassword string, log *zap.SugaredLogger) error {
	// --- Permissions ---
	capabilities := auth.CapabilitiesFor("custom_buttons")
	for _, c := range capabilities {
		p := models.Permission{Name: string(c), Description: describe(c)}
		if err := db.Where(models.Permission{Name: p.Name}).FirstOrCreate(&p).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", p.Name, err)
		}
	}

	// --- Roles ---
	readOnly := []string{
		string(auth.CollectionCapability("custom_buttons", auth.Read)),
		string(auth.ResourceCapability("custom_buttons", auth.Read)),
	}
	all := make([]string, len(capabilities))
	for i, c := range capabilities {
		all[i] = string(c)
	}
	roles := []struct {
		Role        models.Role
		Permissions []string
	}{
		{Role: models.Role{Name: SuperAdminRole, Description: "Administrator with full access"}, Permissions: all},
		{Role: models.Role{Name: ReadOnlyRole, Description: "Standard user"}, Permissions: readOnly},
	}

	for _, rData := range roles {
		role := rData.Role
		if err := db.Where(models.Role{Name: role.Name}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", role.Name, err)
		}

		var permissions []models.Permission
		if err := db.Where("name IN ?", rData.Permissions).Find(&permissions).Error; err != nil {
			return fmt.Errorf("find permissions for role %s: %w", role.Name, err)
		}
		// Append keeps permissions an operator granted by hand.
		if err := db.Model(&role).Association("Permissions").Append(permissions); err != nil {
			return fmt.Errorf("associate permissions with role %s: %w", role.Name, err)
		}
		log.Debugw("Seeded role", "role", role.Name, "permissions", len(permissions))
	}

	// Create an initial admin user if none exists
	var admin models.User
	err := db.Where("username = ?", "admin").First(&admin).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("look up admin user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	var superAdmin models.Role
	if err := db.Where("name = ?", SuperAdminRole).First(&superAdmin).Error; err != nil {
		return fmt.Errorf("find role %s: %w", SuperAdminRole, err)
	}
	admin = models.User{
		Username: "admin",
		Password: string(hash),
		Email:    "admin@example.com",
		Roles:    []models.Role{superAdmin},
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Infow("Created initial admin user", "role", SuperAdminRole)
	return nil
}

func describe(c auth.Capability) string {
	return "Grants " + string(c)
}
