package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

func TestHTTPHandler_CreateReview(t *testing.T) {
	env := setupTestChiServer(t, nil)
	token := env.tokenFor(t, testBuyer)
	env.reviews.On("CreateReview", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.UserID == testBuyer.ID && r.ProductID == 10 && r.Grade == 4 && r.Comment != nil && *r.Comment == "solid"
	})).Return(&domain.Review{
		ID: 5, UserID: testBuyer.ID, ProductID: 10, Comment: PtrTo("solid"), Grade: 4,
		CommentDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), IsActive: true,
	}, nil).Once()

	res := env.do(t, http.MethodPost, "/reviews/", token, ReviewInput{ProductID: 10, Comment: PtrTo("solid"), Grade: 4})

	require.Equal(t, http.StatusCreated, res.StatusCode)
	review := decodeBody[domain.Review](t, res)
	assert.Equal(t, int64(5), review.ID)
	assert.Equal(t, int16(4), review.Grade)
	env.assertExpectations(t)
}

func TestHTTPHandler_CreateReview_Rejected(t *testing.T) {
	testCases := []struct {
		name         string
		user         *domain.User
		input        ReviewInput
		setupMock    func(m *MockReviewStorer)
		expectedCode int
	}{
		{
			name:         "grade out of range",
			user:         testBuyer,
			input:        ReviewInput{ProductID: 10, Grade: 6},
			setupMock:    func(m *MockReviewStorer) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:  "second review of the same product",
			user:  testBuyer,
			input: ReviewInput{ProductID: 10, Grade: 3},
			setupMock: func(m *MockReviewStorer) {
				m.On("CreateReview", mock.Anything, mock.Anything).Return(nil, store.ErrReviewExists).Once()
			},
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "sellers cannot review",
			user:         testSeller,
			input:        ReviewInput{ProductID: 10, Grade: 3},
			setupMock:    func(m *MockReviewStorer) {},
			expectedCode: http.StatusForbidden,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTestChiServer(t, nil)
			token := env.tokenFor(t, tc.user)
			tc.setupMock(env.reviews)

			res := env.do(t, http.MethodPost, "/reviews/", token, tc.input)

			assert.Equal(t, tc.expectedCode, res.StatusCode)
			env.assertExpectations(t)
		})
	}
}

func TestHTTPHandler_ListReviews(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.reviews.On("ListReviews", mock.Anything).Return([]domain.Review{{ID: 1}, {ID: 2}}, nil).Once()
	env.reviews.On("ListProductReviews", mock.Anything, int64(10)).Return([]domain.Review{{ID: 2, ProductID: 10}}, nil).Once()

	res := env.do(t, http.MethodGet, "/reviews/", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeBody[[]domain.Review](t, res), 2)

	res = env.do(t, http.MethodGet, "/products/10/reviews/", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeBody[[]domain.Review](t, res), 1)
	env.assertExpectations(t)
}

func TestHTTPHandler_DeleteReview(t *testing.T) {
	env := setupTestChiServer(t, nil)
	token := env.tokenFor(t, testAdmin)
	env.reviews.On("DeleteReview", mock.Anything, mock.MatchedBy(func(u *domain.User) bool { return u.ID == testAdmin.ID }), int64(5)).
		Return(&domain.Review{ID: 5, ProductID: 10}, nil).Once()

	res := env.do(t, http.MethodDelete, "/reviews/5", token, nil)

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Review with ID [5] is deleted", decodeBody[StatusResponse](t, res).Message)
	env.assertExpectations(t)
}

func TestHTTPHandler_DeleteReview_NotOwner(t *testing.T) {
	env := setupTestChiServer(t, nil)
	token := env.tokenFor(t, testBuyer)
	env.reviews.On("DeleteReview", mock.Anything, mock.Anything, int64(5)).Return(nil, store.ErrReviewNotOwned).Once()

	res := env.do(t, http.MethodDelete, "/reviews/5", token, nil)

	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	env.assertExpectations(t)
}
