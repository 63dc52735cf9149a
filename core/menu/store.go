package menu

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/foodie/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	INSERT INTO menu_items
		(menu_item_id, name, description, category, price, image_url, available, created_at, updated_at)
	VALUES
		(:menu_item_id, :name, :description, :category, :price, :image_url, :available, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, it); err != nil {
		return fmt.Errorf("inserting menu item: %w", err)
	}
	return nil
}

// Update writes it only when its version still matches the stored one, then
// bumps the version.
func Update(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	UPDATE menu_items SET
		name = :name,
		description = :description,
		category = :category,
		price = :price,
		image_url = :image_url,
		available = :available,
		updated_at = :updated_at,
		version = version + 1
	WHERE menu_item_id = :menu_item_id AND version = :version`

	if err := database.NamedExecAffected(ctx, db, q, it); err != nil {
		return fmt.Errorf("updating menu item[%s]: %w", it.ID, err)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	in := struct {
		ID string `db:"menu_item_id"`
	}{id}

	const q = `
	DELETE FROM menu_items
	WHERE menu_item_id = :menu_item_id`

	if err := database.NamedExecAffected(ctx, db, q, in); err != nil {
		return fmt.Errorf("deleting menu item[%s]: %w", id, err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Item, error) {
	in := struct {
		ID string `db:"menu_item_id"`
	}{id}

	const q = `
	SELECT * FROM menu_items
	WHERE menu_item_id = :menu_item_id`

	var it Item
	if err := database.NamedQueryStruct(ctx, db, q, in, &it); err != nil {
		return Item{}, fmt.Errorf("selecting menu item[%s]: %w", id, err)
	}
	return it, nil
}

// List returns the menu ordered by category and name. An empty category
// matches every item.
func List(ctx context.Context, db sqlx.ExtContext, category string) ([]Item, error) {
	in := struct {
		Category string `db:"category"`
	}{category}

	const q = `
	SELECT * FROM menu_items
	WHERE :category = '' OR category = :category
	ORDER BY category, name`

	items := []Item{}
	if err := database.NamedQuerySlice(ctx, db, q, in, &items); err != nil {
		return nil, fmt.Errorf("selecting menu items: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}
