// Package dbtest opens throwaway sqlite databases carrying the platform
// schema, for repository and service tests.
package dbtest

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/magisurprise/backend/pkg/db"
	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
)

// schema mirrors the goose migrations with sqlite types. Constraint names
// are kept so unique-violation checks behave like Postgres.
var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL CONSTRAINT users_email_key UNIQUE,
		username TEXT NOT NULL CONSTRAINT users_username_key UNIQUE,
		nombre TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'cliente',
		instagram TEXT,
		facebook TEXT,
		tiktok TEXT,
		whatsapp TEXT,
		sitio_web TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE negocios (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
		nombre TEXT NOT NULL,
		slug TEXT NOT NULL CONSTRAINT negocios_slug_key UNIQUE,
		descripcion TEXT,
		telefono TEXT,
		whatsapp TEXT,
		direccion TEXT,
		ciudad TEXT,
		latitud REAL,
		longitud REAL,
		logo_url TEXT,
		banner_url TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE categories (
		id TEXT PRIMARY KEY,
		nombre TEXT NOT NULL UNIQUE,
		slug TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE sections (
		id TEXT PRIMARY KEY,
		negocio_id TEXT NOT NULL,
		nombre TEXT NOT NULL,
		descripcion TEXT,
		imagen_url TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE negocio_categories (
		negocio_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		prioridad INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (negocio_id, category_id)
	)`,
	`CREATE TABLE negocio_sections (
		negocio_id TEXT NOT NULL,
		section_id TEXT NOT NULL,
		prioridad INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (negocio_id, section_id)
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		negocio_id TEXT NOT NULL,
		nombre TEXT NOT NULL,
		slug TEXT NOT NULL CONSTRAINT products_slug_key UNIQUE,
		descripcion TEXT,
		precio TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'available',
		imagenes TEXT NOT NULL DEFAULT '{}',
		tags TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE product_sections (
		product_id TEXT NOT NULL,
		section_id TEXT NOT NULL,
		prioridad INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (product_id, section_id)
	)`,
	`CREATE TABLE delivery_data (
		id TEXT PRIMARY KEY,
		sender_name TEXT NOT NULL,
		sender_phone TEXT NOT NULL,
		recipient_name TEXT,
		recipient_phone TEXT NOT NULL,
		delivery_address TEXT NOT NULL,
		city TEXT,
		delivery_date DATETIME,
		delivery_time_slot TEXT,
		message TEXT,
		notes TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		negocio_id TEXT,
		delivery_data_id TEXT UNIQUE,
		estado TEXT NOT NULL DEFAULT 'RECIBIDA',
		total TEXT NOT NULL,
		price_unverified INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		product_id TEXT,
		nombre TEXT,
		cantidad INTEGER NOT NULL,
		precio TEXT NOT NULL,
		comentario TEXT,
		is_custom INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE order_status_history (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		previous_state TEXT,
		new_state TEXT NOT NULL,
		comment TEXT,
		changed_by TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a private in-memory database with every table created.
// A single connection keeps transactions and reads on the same handle.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := "file:" + strings.ReplaceAll(uuid.NewString(), "-", "") + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(name), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}

// SeedUser inserts a user with random identity fields.
func SeedUser(t testing.TB, conn *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		Email:    gofakeit.Email(),
		Username: gofakeit.Username() + gofakeit.DigitN(4),
		Nombre:   gofakeit.Name(),
		Role:     role,
	}
	mustCreate(t, conn, user)
	return user
}

// SeedNegocio inserts a negocio owned by a fresh negocio-role user.
func SeedNegocio(t testing.TB, conn *gorm.DB) *models.Negocio {
	t.Helper()
	owner := SeedUser(t, conn, enums.UserRoleNegocio)
	negocio := &models.Negocio{
		ID:     uuid.New(),
		UserID: owner.ID,
		Nombre: gofakeit.Company(),
		Slug:   "negocio-" + strings.ToLower(gofakeit.LetterN(8)),
	}
	mustCreate(t, conn, negocio)
	negocio.Owner = owner
	return negocio
}

// SeedProduct inserts an available product of negocioID at the given price.
func SeedProduct(t testing.TB, conn *gorm.DB, negocioID uuid.UUID, precio int64) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:        uuid.New(),
		NegocioID: negocioID,
		Nombre:    gofakeit.ProductName(),
		Slug:      "producto-" + strings.ToLower(gofakeit.LetterN(8)),
		Precio:    decimal.NewFromInt(precio),
		Status:    enums.ProductStatusAvailable,
		Imagenes:  []string{},
		Tags:      []string{},
	}
	mustCreate(t, conn, product)
	return product
}

func SeedSection(t testing.TB, conn *gorm.DB, negocioID uuid.UUID) *models.Section {
	t.Helper()
	section := &models.Section{
		ID:        uuid.New(),
		NegocioID: negocioID,
		Nombre:    gofakeit.ProductCategory(),
	}
	mustCreate(t, conn, section)
	return section
}

func SeedCategory(t testing.TB, conn *gorm.DB) *models.Category {
	t.Helper()
	nombre := gofakeit.ProductCategory() + " " + gofakeit.LetterN(5)
	category := &models.Category{
		ID:     uuid.New(),
		Nombre: nombre,
		Slug:   strings.ToLower(strings.ReplaceAll(nombre, " ", "-")),
	}
	mustCreate(t, conn, category)
	return category
}

// Count returns the number of rows of model.
func Count(t testing.TB, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func mustCreate(t testing.TB, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
