package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by EnsureSchema.  Every statement is
// idempotent.  A reservation belongs to exactly one product and date, so
// uq_tour_reservations_reservation keeps it on at most one roster.  reservations is owned by the booking system; it is created
// here only so that a fresh database can be used for local runs.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS reservations (
		id            VARCHAR(64)  NOT NULL PRIMARY KEY,
		product_id    VARCHAR(64)  NOT NULL,
		tour_date     DATE         NOT NULL,
		customer_name VARCHAR(255) NOT NULL DEFAULT '',
		adults        INT UNSIGNED NOT NULL DEFAULT 0,
		children      INT UNSIGNED NOT NULL DEFAULT 0,
		infants       INT UNSIGNED NOT NULL DEFAULT 0,
		total_people  INT UNSIGNED NOT NULL DEFAULT 0,
		status        VARCHAR(16)  NOT NULL,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_reservations_product_date (product_id, tour_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tours (
		id               VARCHAR(64)   NOT NULL PRIMARY KEY,
		product_id       VARCHAR(64)   NOT NULL,
		tour_date        DATE          NOT NULL,
		guide_id         VARCHAR(64)   NOT NULL DEFAULT '',
		assistant_id     VARCHAR(64)   NULL,
		prepaid_gratuity DECIMAL(20,8) NOT NULL DEFAULT 0,
		created_at       DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_tours_product_date (product_id, tour_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tour_reservations (
		tour_id        VARCHAR(64) NOT NULL,
		reservation_id VARCHAR(64) NOT NULL,
		PRIMARY KEY (tour_id, reservation_id),
		UNIQUE KEY uq_tour_reservations_reservation (reservation_id),
		CONSTRAINT fk_tour_reservations_tour FOREIGN KEY (tour_id) REFERENCES tours (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tour_allocations (
		tour_id           VARCHAR(64)    NOT NULL PRIMARY KEY,
		pool              DECIMAL(20,8)  NOT NULL,
		guide_percent     DECIMAL(20,12) NOT NULL,
		guide_amount      DECIMAL(20,8)  NOT NULL,
		has_assistant     TINYINT(1)     NOT NULL DEFAULT 0,
		assistant_percent DECIMAL(20,12) NULL,
		assistant_amount  DECIMAL(20,8)  NULL,
		op_percent        DECIMAL(20,12) NOT NULL,
		op_amount         DECIMAL(20,8)  NOT NULL,
		updated_at        DATETIME       NOT NULL,
		CONSTRAINT fk_tour_allocations_tour FOREIGN KEY (tour_id) REFERENCES tours (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tour_allocation_members (
		tour_id   VARCHAR(64)    NOT NULL,
		member_id VARCHAR(64)    NOT NULL,
		position  INT UNSIGNED   NOT NULL,
		percent   DECIMAL(20,12) NOT NULL,
		amount    DECIMAL(20,8)  NOT NULL,
		PRIMARY KEY (tour_id, member_id),
		CONSTRAINT fk_allocation_members_ledger FOREIGN KEY (tour_id) REFERENCES tour_allocations (tour_id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS staff (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255)    NOT NULL,
		name          VARCHAR(255)    NOT NULL DEFAULT '',
		password_hash VARCHAR(255)    NOT NULL,
		role          VARCHAR(16)     NOT NULL,
		is_active     TINYINT(1)      NOT NULL DEFAULT 1,
		created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_staff_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		staff_id   BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_staff (staff_id),
		CONSTRAINT fk_refresh_tokens_staff FOREIGN KEY (staff_id) REFERENCES staff (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
