package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalgona/diary/internal/database"
	"github.com/dalgona/diary/internal/model"
)

// DiaryRepository handles diary entries
type DiaryRepository struct {
	db database.Database
}

// NewDiaryRepository creates a new diary repository
func NewDiaryRepository(db database.Database) *DiaryRepository {
	return &DiaryRepository{db: db}
}

// Create inserts a diary entry
func (r *DiaryRepository) Create(ctx context.Context, diary *model.Diary) error {
	query := `
		CREATE diary CONTENT {
			user_id: $user_id,
			title: $title,
			date: <datetime>$date,
			emotion: $emotion,
			type: $type,
			contents: $contents,
			draw: IF $draw != NONE THEN $draw ELSE NONE END,
			created_on: time::now(),
			updated_on: time::now()
		}
	`

	vars := map[string]interface{}{
		"user_id":  diary.UserID,
		"title":    diary.Title,
		"date":     diary.Date.UTC().Format(time.RFC3339),
		"emotion":  string(diary.Emotion),
		"type":     diary.Type,
		"contents": diary.Contents,
		"draw":     ptrToNone(diary.Draw),
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	diary.ID = created.ID
	diary.CreatedOn = created.CreatedOn
	diary.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves a diary entry, or nil if none exists
func (r *DiaryRepository) GetByID(ctx context.Context, id string) (*model.Diary, error) {
	query := `SELECT * FROM type::record($id)`
	vars := map[string]interface{}{"id": id}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		return nil, notFoundAsNil(err)
	}

	data, err := recordMap(result)
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return parseDiary(data), nil
}

// Update applies the present fields of req and returns the stored entry
func (r *DiaryRepository) Update(ctx context.Context, id string, req *model.UpdateDiaryRequest) (*model.Diary, error) {
	sets := []string{"updated_on = time::now()"}
	vars := map[string]interface{}{"id": id}

	if req.Title != nil {
		sets = append(sets, "title = $title")
		vars["title"] = *req.Title
	}
	if req.Date != nil {
		date, err := model.ParseDiaryDate(*req.Date)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "date = <datetime>$date")
		vars["date"] = date.Format(time.RFC3339)
	}
	if req.Emotion != nil {
		sets = append(sets, "emotion = $emotion")
		vars["emotion"] = *req.Emotion
	}
	if req.Type != nil {
		sets = append(sets, "type = $type")
		vars["type"] = *req.Type
	}
	if req.Contents != nil {
		sets = append(sets, "contents = $contents")
		vars["contents"] = *req.Contents
	}
	if req.Draw != nil {
		if *req.Draw == "" {
			sets = append(sets, "draw = NONE")
		} else {
			sets = append(sets, "draw = $draw")
			vars["draw"] = *req.Draw
		}
	}

	query := fmt.Sprintf("UPDATE type::record($id) SET %s RETURN AFTER", strings.Join(sets, ", "))

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		return nil, notFoundAsNil(err)
	}

	data, err := recordMap(result)
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return parseDiary(data), nil
}

// Delete removes a diary entry
func (r *DiaryRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE type::record($id)`
	vars := map[string]interface{}{"id": id}

	return r.db.Execute(ctx, query, vars)
}

// ListByPeriod returns a user's entries dated inside the period, oldest first
func (r *DiaryRepository) ListByPeriod(ctx context.Context, userID string, period model.Period) ([]*model.Diary, error) {
	query := `
		SELECT * FROM diary
		WHERE user_id = $user_id
			AND date >= <datetime>$start
			AND date < <datetime>$end
		ORDER BY date ASC
	`

	result, err := r.db.Query(ctx, query, periodVars(userID, period))
	if err != nil {
		return nil, err
	}

	rows := extractQueryResults(result)
	diaries := make([]*model.Diary, 0, len(rows))
	for _, row := range rows {
		data, err := recordMap(row)
		if err != nil {
			continue
		}
		diaries = append(diaries, parseDiary(data))
	}
	return diaries, nil
}

// SelectEmotions returns the emotion value of every entry a user wrote in
// the period. Values are returned verbatim, including unrecognised labels.
func (r *DiaryRepository) SelectEmotions(ctx context.Context, userID string, period model.Period) ([]string, error) {
	query := `
		SELECT emotion FROM diary
		WHERE user_id = $user_id
			AND date >= <datetime>$start
			AND date < <datetime>$end
	`

	result, err := r.db.Query(ctx, query, periodVars(userID, period))
	if err != nil {
		return nil, err
	}

	rows := extractQueryResults(result)
	emotions := make([]string, 0, len(rows))
	for _, row := range rows {
		data, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		emotions = append(emotions, getString(data, "emotion"))
	}
	return emotions, nil
}

func periodVars(userID string, period model.Period) map[string]interface{} {
	return map[string]interface{}{
		"user_id": userID,
		"start":   period.Start().Format(time.RFC3339),
		"end":     period.End().Format(time.RFC3339),
	}
}

func parseDiary(data map[string]interface{}) *model.Diary {
	return &model.Diary{
		ID:        convertSurrealID(data["id"]),
		UserID:    getString(data, "user_id"),
		Title:     getString(data, "title"),
		Date:      parseTime(data["date"]).UTC(),
		Emotion:   model.Emotion(getString(data, "emotion")),
		Type:      getString(data, "type"),
		Contents:  getString(data, "contents"),
		Draw:      getStringPtr(data, "draw"),
		CreatedOn: parseTime(data["created_on"]),
		UpdatedOn: parseTime(data["updated_on"]),
	}
}
