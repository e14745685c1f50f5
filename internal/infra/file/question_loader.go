package file

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"quiz-battle-service/internal/domain"
)

// QuestionLoader reads semicolon-delimited question banks from a directory,
// one <subject>.csv per subject with rows of
// prompt;correct;wrong1;wrong2;wrong3. Unknown subjects yield an empty bank,
// not an error.
type QuestionLoader struct {
	dir string
}

func NewQuestionLoader(dir string) *QuestionLoader {
	return &QuestionLoader{dir: dir}
}

func (l *QuestionLoader) LoadQuestions(_ context.Context, subject string) ([]domain.QuestionRecord, error) {
	path := filepath.Join(l.dir, filepath.Base(subject)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	questions := make([]domain.QuestionRecord, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		questions = append(questions, domain.QuestionRecord{
			Prompt:        row[0],
			CorrectAnswer: row[1],
			Distractors:   [3]string{row[2], row[3], row[4]},
			Subject:       subject,
		})
	}
	return questions, nil
}

// Subjects lists the banks present in the directory.
func (l *QuestionLoader) Subjects(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	subjects := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		subjects = append(subjects, strings.TrimSuffix(name, ".csv"))
	}
	sort.Strings(subjects)
	return subjects, nil
}
