package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Property{},
		&InviteCode{},
		&PropertyAssociation{},
	); err != nil {
		return err
	}

	// Case-insensitive unique email for non-soft-deleted users.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower " +
			"ON users ((lower(email))) WHERE deleted_at IS NULL AND email <> ''",
	).Error; err != nil {
		return err
	}

	// Backfill status for rows written before the enum existed; the legacy
	// boolean stays in place but is never the source of truth again.
	if err := db.Exec(
		"UPDATE invite_codes SET status = 'used' WHERE used = true AND status = 'active'",
	).Error; err != nil {
		return err
	}

	// One active association per tenant/property/unit. Scoped to the unit
	// so a tenant can redeem codes for different units of the same property.
	if err := db.Exec("DROP INDEX IF EXISTS idx_assoc_tenant_property").Error; err != nil {
		return err
	}
	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_assoc_tenant_property_unit " +
			"ON property_associations (tenant_id, property_id, unit_id) WHERE status = 'active'",
	).Error
}
