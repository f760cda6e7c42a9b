package domains

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bitleak/lmstfy/client"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrichain/advisor/common/model"
	"agrichain/advisor/internal/business"
	"agrichain/advisor/internal/domains/common"
	"agrichain/advisor/internal/domains/common/response"
	"agrichain/advisor/pkg/errorutil"
	"agrichain/advisor/pkg/lmstfyx"
	"agrichain/advisor/pkg/logger"
)

type fakeRecommender struct {
	inputs []*business.RecommendInput
	err    error
	panics bool
}

func (f *fakeRecommender) ExecuteRecommendation(ctx context.Context, input *business.RecommendInput) (*business.Bundle, error) {
	if f.panics {
		panic("synthesizer exploded")
	}
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &business.Bundle{Recommendation: &model.Recommendation{
		Action:      model.ActionSellNow,
		Urgency:     model.UrgencyMedium,
		Confidence:  85,
		DataQuality: model.QualityGood,
	}}, nil
}

func newJob(t *testing.T, requestID, actionType string, data interface{}) *client.Job {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"payload": map[string]interface{}{
			"data": map[string]interface{}{
				"request_id":  requestID,
				"org_id":      "org-1",
				"action_type": actionType,
				"id":          "farmer-42",
				"data":        data,
			},
		},
	})
	require.NoError(t, err)
	return &client.Job{ID: "job-1", Queue: "harvest_recommend", Data: raw}
}

func validPayload() model.HarvestRecommendBusinessData {
	return model.HarvestRecommendBusinessData{
		FarmerID:  "farmer-42",
		Latitude:  21.1458,
		Longitude: 79.0882,
		Crop:      "Tomato",
		FieldSize: 2.5,
	}
}

func decode(t *testing.T, resp *lmstfyx.JobResp) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestGetProcessSuccess(t *testing.T) {
	rec := &fakeRecommender{}
	proc := GetProcess(logger.NewNop(), &common.Deps{Recommender: rec})

	resp := proc(context.Background(), newJob(t, "req-1", model.ActionTypeHarvestRecommend, validPayload()))
	require.NotNil(t, resp)
	assert.Equal(t, lmstfyx.JobRespStatusSuccess, resp.Action)

	require.Len(t, rec.inputs, 1)
	in := rec.inputs[0]
	assert.Equal(t, "req-1", in.RequestID)
	assert.Equal(t, "farmer-42", in.FarmerID)
	assert.Equal(t, "tomato", in.Crop)
	assert.Equal(t, model.LocaleEnglish, in.Locale)

	out := decode(t, resp)
	assert.Equal(t, true, out["processed"])
	result := out["result"].(map[string]interface{})
	assert.Equal(t, response.RecommendationStatusSuccess, result["status"])
	assert.Equal(t, string(model.ActionSellNow), result["action"])
}

func TestGetProcessGeneratesRequestID(t *testing.T) {
	rec := &fakeRecommender{}
	proc := GetProcess(logger.NewNop(), &common.Deps{Recommender: rec})

	resp := proc(context.Background(), newJob(t, "", model.ActionTypeHarvestRecommend, validPayload()))
	assert.Equal(t, lmstfyx.JobRespStatusSuccess, resp.Action)

	require.Len(t, rec.inputs, 1)
	_, err := uuid.Parse(rec.inputs[0].RequestID)
	assert.NoError(t, err)
}

func TestGetProcessBuriesBadJobs(t *testing.T) {
	badCrop := validPayload()
	badCrop.Crop = "potato"

	tests := []struct {
		name string
		job  *client.Job
	}{
		{"malformed json", &client.Job{ID: "job-1", Data: []byte("{not json")}},
		{"missing payload", &client.Job{ID: "job-1", Data: []byte(`{"payload":{}}`)}},
		{"unknown action", newJob(t, "req-1", "order_diagnose", validPayload())},
		{"payload not an object", newJob(t, "req-1", model.ActionTypeHarvestRecommend, "tomato")},
		{"unsupported crop", newJob(t, "req-1", model.ActionTypeHarvestRecommend, badCrop)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecommender{}
			resp := GetProcess(logger.NewNop(), &common.Deps{Recommender: rec})(context.Background(), tt.job)
			assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)
			assert.Empty(t, rec.inputs)
		})
	}
}

func TestGetProcessReleasesRetryableFailures(t *testing.T) {
	rec := &fakeRecommender{err: errorutil.Unavailable("callback_queue", errors.New("503"))}
	resp := GetProcess(logger.NewNop(), &common.Deps{Recommender: rec})(
		context.Background(), newJob(t, "req-1", model.ActionTypeHarvestRecommend, validPayload()))

	assert.Equal(t, lmstfyx.JobRespStatusRelease, resp.Action)
	out := decode(t, resp)
	assert.Equal(t, false, out["processed"])
}

func TestGetProcessReleasesTimeouts(t *testing.T) {
	rec := &fakeRecommender{err: context.DeadlineExceeded}
	resp := GetProcess(logger.NewNop(), &common.Deps{Recommender: rec})(
		context.Background(), newJob(t, "req-1", model.ActionTypeHarvestRecommend, validPayload()))

	assert.Equal(t, lmstfyx.JobRespStatusRelease, resp.Action)
}

func TestGetProcessRecoversPanics(t *testing.T) {
	rec := &fakeRecommender{panics: true}
	resp := GetProcess(logger.NewNop(), &common.Deps{Recommender: rec})(
		context.Background(), newJob(t, "req-1", model.ActionTypeHarvestRecommend, validPayload()))

	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)
	assert.Contains(t, string(resp.Data), "synthesizer exploded")
}

func TestGetProcessWithoutRecommender(t *testing.T) {
	resp := GetProcess(logger.NewNop(), &common.Deps{})(
		context.Background(), newJob(t, "req-1", model.ActionTypeHarvestRecommend, validPayload()))
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)
}
