package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SetProductPhoto stores the photo for a product, replacing any previous one.
func SetProductPhoto(ctx context.Context, db *sql.DB, productID int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO product_photos (product_id, image, mime) VALUES (?, ?, ?)
		 ON CONFLICT (product_id) DO UPDATE
		 SET image = excluded.image, mime = excluded.mime, updated_at = CURRENT_TIMESTAMP`,
		productID, image, mime,
	)
	if err != nil {
		return fmt.Errorf("setting product photo: %w", err)
	}
	return nil
}

// GetProductPhoto returns a product's photo and MIME type, or nil if none is stored.
func GetProductPhoto(ctx context.Context, db *sql.DB, productID int64) ([]byte, string, error) {
	var image []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT image, mime FROM product_photos WHERE product_id = ?`, productID,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting product photo: %w", err)
	}
	return image, mime, nil
}

// DeleteProductPhoto removes a product's photo, if any.
func DeleteProductPhoto(ctx context.Context, db *sql.DB, productID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM product_photos WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("deleting product photo: %w", err)
	}
	return nil
}
