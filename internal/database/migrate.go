package database

import (
	"fmt"

	"gorm.io/gorm"

	"shopease/internal/config"
	"shopease/internal/model"
	"shopease/pkg/log"
)

// Models returns the tables owned by service
func Models(service string) ([]interface{}, error) {
	switch service {
	case config.ServiceProduct:
		return []interface{}{&model.Product{}}, nil
	case config.ServiceUser:
		return []interface{}{&model.User{}}, nil
	case config.ServiceOrder:
		return []interface{}{&model.Order{}, &model.OrderItem{}}, nil
	case config.ServicePayment:
		return []interface{}{&model.Payment{}}, nil
	case config.ServiceNotification:
		return []interface{}{&model.Notification{}}, nil
	default:
		return nil, fmt.Errorf("unknown service: %s", service)
	}
}

// AutoMigrate auto migrate the tables of one service
func AutoMigrate(db *gorm.DB, service string) error {
	models, err := Models(service)
	if err != nil {
		return err
	}

	log.WithField("service", service).Info("Starting database migration...")
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", m, err)
		}
		log.Infof("Migrated model: %T", m)
	}
	return nil
}

// CheckTables reports tables of service that are missing
func CheckTables(db *gorm.DB, service string) ([]string, error) {
	models, err := Models(service)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, m := range models {
		if !db.Migrator().HasTable(m) {
			stmt := &gorm.Statement{DB: db}
			if err := stmt.Parse(m); err != nil {
				return nil, fmt.Errorf("failed to parse %T: %w", m, err)
			}
			missing = append(missing, stmt.Schema.Table)
		}
	}
	return missing, nil
}
