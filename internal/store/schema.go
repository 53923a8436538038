package store

import (
	"context"
	"fmt"
)

// SchemaSQL creates every table the service uses. Statements are idempotent.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS users (
    id              BIGSERIAL PRIMARY KEY,
    email           VARCHAR(255) NOT NULL UNIQUE,
    hashed_password VARCHAR(255) NOT NULL,
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    role            VARCHAR(16) NOT NULL DEFAULT 'buyer'
        CHECK (role IN ('buyer', 'seller', 'admin'))
);

CREATE TABLE IF NOT EXISTS categories (
    id        BIGSERIAL PRIMARY KEY,
    name      VARCHAR(50) NOT NULL,
    parent_id BIGINT REFERENCES categories(id),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS products (
    id          BIGSERIAL PRIMARY KEY,
    name        VARCHAR(100) NOT NULL,
    description VARCHAR(500),
    price       NUMERIC(10, 2) CHECK (price > 0),
    image_url   VARCHAR(200),
    stock       INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
    category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    seller_id   BIGINT NOT NULL REFERENCES users(id),
    rating      NUMERIC(3, 2) NOT NULL DEFAULT 0,
    is_active   BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS products_category_id_idx ON products (category_id);
CREATE INDEX IF NOT EXISTS products_seller_id_idx ON products (seller_id);

CREATE TABLE IF NOT EXISTS cart_items (
    id         BIGSERIAL PRIMARY KEY,
    user_id    BIGINT NOT NULL REFERENCES users(id),
    product_id BIGINT NOT NULL REFERENCES products(id),
    quantity   INTEGER NOT NULL CHECK (quantity >= 1),
    CONSTRAINT cart_items_user_product_key UNIQUE (user_id, product_id)
);

CREATE TABLE IF NOT EXISTS orders (
    id           BIGSERIAL PRIMARY KEY,
    user_id      BIGINT NOT NULL REFERENCES users(id),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    total_amount NUMERIC(12, 2) NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS order_items (
    id          BIGSERIAL PRIMARY KEY,
    order_id    BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    product_id  BIGINT NOT NULL REFERENCES products(id),
    quantity    INTEGER NOT NULL CHECK (quantity >= 1),
    unit_price  NUMERIC(10, 2) NOT NULL,
    total_price NUMERIC(12, 2) NOT NULL
);

CREATE TABLE IF NOT EXISTS reviews (
    id           BIGSERIAL PRIMARY KEY,
    user_id      BIGINT NOT NULL REFERENCES users(id),
    product_id   BIGINT NOT NULL REFERENCES products(id),
    comment      TEXT,
    comment_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    grade        SMALLINT NOT NULL CONSTRAINT check_grade_range CHECK (grade >= 1 AND grade <= 5),
    is_active    BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE UNIQUE INDEX IF NOT EXISTS reviews_active_user_product_key
    ON reviews (user_id, product_id) WHERE is_active;
`

// Migrate applies SchemaSQL.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("store: Migrate failed to apply schema: %w", err)
	}
	return nil
}
