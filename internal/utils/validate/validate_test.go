package validate

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	valid := []string{"john@example.com", "dr.test@example.com", "a_b%c+d-e@sub.domain.org", "X@Y.IO"}
	for _, s := range valid {
		assert.True(t, Email(s), s)
	}

	invalid := []string{"", "bademail.com", "a@b", "a@b.c", "a b@example.com", "@example.com", "john@exa_mple.com"}
	for _, s := range invalid {
		assert.False(t, Email(s), s)
	}
}

func TestName(t *testing.T) {
	for _, s := range []string{"john", "Dr Test", "Mary Ann", "O'Brien", "d'Artagnan  Jr"} {
		assert.True(t, Name(s), s)
	}
	for _, s := range []string{"", "   ", "'", "123gad", "john3", "Anne-Marie", "Ana!"} {
		assert.False(t, Name(s), s)
	}
}

func TestNonEmpty(t *testing.T) {
	assert.True(t, NonEmpty("x"))
	assert.True(t, NonEmpty("  Intro to Python "))
	assert.False(t, NonEmpty(""))
	assert.False(t, NonEmpty(" \t\n"))
}

// The range predicates return true when the value is inside the range.
func TestRangePredicates_DocumentedSemantics(t *testing.T) {
	t.Run("age", func(t *testing.T) {
		for _, n := range []int{11, 15, 20, 29} {
			assert.True(t, Age(n), n)
		}
		for _, n := range []int{-1, 0, 10, 30, 31, 99} {
			assert.False(t, Age(n), n)
		}
	})

	t.Run("year", func(t *testing.T) {
		for _, n := range []int{1, 2, 3, 4, 5} {
			assert.True(t, Year(n), n)
		}
		for _, n := range []int{0, 6, -3} {
			assert.False(t, Year(n), n)
		}
	})

	t.Run("grade", func(t *testing.T) {
		for _, g := range []float64{0, 0.1, 50, 95.5, 100} {
			assert.True(t, Grade(g), g)
		}
		for _, g := range []float64{-0.01, 100.01, 1000, math.NaN()} {
			assert.False(t, Grade(g), g)
		}
	})
}

type sample struct {
	Name  string `json:"name" validate:"required,person_name"`
	Email string `json:"email" validate:"required,email_address"`
	Age   int    `json:"age" validate:"age"`
	Year  int    `json:"year" validate:"study_year"`
	Level int    `json:"level" validate:"course_year"`
	Title string `json:"title" validate:"required,nonblank"`
}

func TestStruct_Valid(t *testing.T) {
	s := sample{Name: "john", Email: "john@example.com", Age: 15, Year: 3, Title: "Python 101"}
	require.NoError(t, Struct(s))

	s.Level = 5
	require.NoError(t, Struct(s))
}

func TestStruct_CollectsEveryFailingField(t *testing.T) {
	s := sample{Name: "123gad", Email: "bademail.com", Age: 40, Year: 9, Level: 7, Title: "   "}

	err := Struct(s)
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Messages, 6)

	assert.Contains(t, verr.Messages[0], `invalid name "123gad"`)
	assert.Contains(t, verr.Messages[1], `invalid email "bademail.com"`)
	assert.Contains(t, verr.Messages[2], "invalid age 40")
	assert.Contains(t, verr.Messages[3], "invalid year 9")
	assert.Contains(t, verr.Messages[4], "invalid year 7")
	assert.Equal(t, "title cannot be empty", verr.Messages[5])
	assert.Contains(t, err.Error(), ", ")
}

func TestStruct_RequiredUsesJSONFieldName(t *testing.T) {
	err := Struct(sample{Email: "john@example.com", Age: 15, Year: 1, Title: "t"})
	require.Error(t, err)
	assert.Equal(t, "name cannot be empty", err.Error())
}
