package tests

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const studentRoll = "2023111123"

type marksResponse struct {
	Marks float64 `json:"marks"`
}

type submitResponse struct {
	Success bool `json:"success"`
	Data    struct {
		RollNumber string  `json:"rollNumber"`
		Subject    string  `json:"subject"`
		TAName     string  `json:"taName"`
		Marks      float64 `json:"marks"`
	} `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func submitBody(roll, subject, ta string, m interface{}) map[string]interface{} {
	return map[string]interface{}{
		"rollNumber": roll,
		"subject":    subject,
		"taName":     ta,
		"marks":      m,
	}
}

func TestGateway_Marks(t *testing.T) {
	env := setupGatewayTestEnv(t)
	token := env.login(t, studentRoll)

	t.Run("Get Before Submit Is Zero", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/marks?rollNumber="+studentRoll+"&subject=History", token, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp marksResponse
		decode(t, rr, &resp)
		assert.Equal(t, 0.0, resp.Marks)
	})

	t.Run("Submit Then Read Back", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/marks", token, submitBody(studentRoll, "History", "Kriti", 12.345))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp submitResponse
		decode(t, rr, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, 12.35, resp.Data.Marks)
		assert.Equal(t, "Kriti", resp.Data.TAName)

		rr = env.do(t, http.MethodGet, "/api/marks?rollNumber="+studentRoll+"&subject=History", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var got marksResponse
		decode(t, rr, &got)
		assert.Equal(t, 12.35, got.Marks)
	})

	t.Run("Resubmit Overwrites", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/marks", token, submitBody(studentRoll, "History", "Rohan", 20))
		require.Equal(t, http.StatusOK, rr.Code)

		all, err := env.Store.All(context.Background())
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.Equal(t, "Rohan", all[0].TAName)
	})

	t.Run("No Session", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/marks", "", submitBody(studentRoll, "History", "Kriti", 10))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = env.do(t, http.MethodGet, "/api/marks?rollNumber="+studentRoll+"&subject=History", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Foreign Roll Is Forbidden And Not Stored", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/marks", token, submitBody("2023101456", "Economics", "Kriti", 10))
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = env.do(t, http.MethodGet, "/api/marks?rollNumber=2023101456&subject=Economics", token, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		_, err := env.Store.Find(context.Background(), "2023101456", "Economics")
		assert.Error(t, err)
	})

	t.Run("Mismatch Beats Missing Fields", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/marks", token, map[string]interface{}{"rollNumber": "2023101456"})
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Foreign Roll With Malformed Fields Is Forbidden", func(t *testing.T) {
		bodies := []string{
			`{"rollNumber":"2023101456","subject":"History","taName":"Aadi","marks":"abc"}`,
			`{"rollNumber":"2023101456","subject":"History","taName":"Aadi","marks":true}`,
			`{"rollNumber":"2023101456","subject":42,"taName":["Aadi"],"marks":10}`,
			`{"rollNumber":2023101456,"subject":"History","taName":"Aadi","marks":10}`,
		}
		for _, body := range bodies {
			rr := env.do(t, http.MethodPost, "/api/marks", token, body)
			assert.Equal(t, http.StatusForbidden, rr.Code, body)
		}

		_, err := env.Store.Find(context.Background(), "2023101456", "History")
		assert.Error(t, err)
	})

	t.Run("Own Roll With Malformed Marks Is Bad Request", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/marks", token,
			`{"rollNumber":"`+studentRoll+`","subject":"Economics","taName":"Aadi","marks":"abc"}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp errorResponse
		decode(t, rr, &resp)
		assert.Equal(t, "Invalid value type for: marks", resp.Error)

		_, err := env.Store.Find(context.Background(), studentRoll, "Economics")
		assert.Error(t, err)
	})

	t.Run("Missing Fields", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/marks", token, map[string]interface{}{"rollNumber": studentRoll, "subject": "History"})
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp errorResponse
		decode(t, rr, &resp)
		assert.Equal(t, "Missing required fields: taName, marks", resp.Error)

		rr = env.do(t, http.MethodGet, "/api/marks?rollNumber="+studentRoll, token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Out Of Range", func(t *testing.T) {
		for _, m := range []float64{-1, 30.5, 100} {
			rr := env.do(t, http.MethodPost, "/api/marks", token, submitBody(studentRoll, "Sociology", "Medha", m))
			assert.Equal(t, http.StatusBadRequest, rr.Code, "marks=%v", m)
		}
	})

	t.Run("Malformed Body", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/marks", token, `{"marks": "ten"`)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp errorResponse
		decode(t, rr, &resp)
		assert.Equal(t, "Invalid request payload", resp.Error)

		rr = env.do(t, http.MethodPost, "/api/marks", token, nil)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		decode(t, rr, &resp)
		assert.Equal(t, "Request body is empty", resp.Error)
	})

	t.Run("Concurrent Submissions Leave One Record", func(t *testing.T) {
		var wg sync.WaitGroup
		codes := make(chan int, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rr := env.do(t, http.MethodPost, "/api/marks", token, submitBody(studentRoll, "Philosophy", "Tanish", i))
				codes <- rr.Code
			}(i)
		}
		wg.Wait()
		close(codes)

		for code := range codes {
			assert.Contains(t, []int{http.StatusOK, http.StatusConflict}, code)
		}

		rec, err := env.Store.Find(context.Background(), studentRoll, "Philosophy")
		require.NoError(t, err)
		assert.Equal(t, "Tanish", rec.TAName)
	})
}
