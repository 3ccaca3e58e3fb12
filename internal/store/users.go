package store

import "context"

const insertUser = `
INSERT INTO users (id, username, password, fullname)
VALUES ($1, $2, $3, $4)
`

// InsertUserParams 新增使用者參數
type InsertUserParams struct {
	ID       string
	Username string
	Password string
	Fullname string
}

// InsertUser 新增使用者，username 重複時回傳 23505
func (q *Queries) InsertUser(ctx context.Context, arg InsertUserParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertUser, arg.ID, arg.Username, arg.Password, arg.Fullname)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
