package comment

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/foodie/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, c Comment) error {
	const q = `
	INSERT INTO comments
		(comment_id, user_id, menu_item_id, rating, body, created_at)
	VALUES
		(:comment_id, :user_id, :menu_item_id, :rating, :body, :created_at)`

	if err := database.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Comment, error) {
	in := struct {
		ID string `db:"comment_id"`
	}{id}

	const q = `
	SELECT * FROM comments
	WHERE comment_id = :comment_id`

	var c Comment
	if err := database.NamedQueryStruct(ctx, db, q, in, &c); err != nil {
		return Comment{}, fmt.Errorf("selecting comment[%s]: %w", id, err)
	}
	return c, nil
}

func ListByMenuItem(ctx context.Context, db sqlx.ExtContext, menuItemID string) ([]Comment, error) {
	in := struct {
		MenuItemID string `db:"menu_item_id"`
	}{menuItemID}

	const q = `
	SELECT * FROM comments
	WHERE menu_item_id = :menu_item_id
	ORDER BY created_at DESC`

	var cs []Comment
	if err := database.NamedQuerySlice(ctx, db, q, in, &cs); err != nil {
		return nil, fmt.Errorf("selecting comments of menu item[%s]: %w", menuItemID, err)
	}
	return cs, nil
}

func ListRecent(ctx context.Context, db sqlx.ExtContext, limit int) ([]Comment, error) {
	in := struct {
		Limit int `db:"limit"`
	}{limit}

	const q = `
	SELECT * FROM comments
	ORDER BY created_at DESC
	LIMIT :limit`

	var cs []Comment
	if err := database.NamedQuerySlice(ctx, db, q, in, &cs); err != nil {
		return nil, fmt.Errorf("selecting recent comments: %w", err)
	}
	return cs, nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	in := struct {
		ID string `db:"comment_id"`
	}{id}

	const q = `
	DELETE FROM comments
	WHERE comment_id = :comment_id`

	if err := database.NamedExecAffected(ctx, db, q, in); err != nil {
		return fmt.Errorf("deleting comment[%s]: %w", id, err)
	}
	return nil
}
