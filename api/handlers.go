// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/go-chi/chi/v5"
)

const maxRequestBodySize = 64 * 1024

func decodeRequest(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %w: %w", ledger.ErrInvalidArgument, err)
	}
	return nil
}

func parseAmount(val string) (uint64, error) {
	amount, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", val, ledger.ErrInvalidArgument)
	}
	return amount, nil
}

func campaignIdParam(r *http.Request) (uint64, error) {
	val := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid campaign id %q: %w", val, ledger.ErrInvalidArgument)
	}
	return id, nil
}

func milestoneIndexParam(r *http.Request) (int, error) {
	val := chi.URLParam(r, "index")
	idx, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid milestone index %q: %w", val, ledger.ErrInvalidArgument)
	}
	return idx, nil
}

func principalParam(r *http.Request) (identity.Principal, error) {
	return identity.ParsePrincipal(chi.URLParam(r, "principal"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.services.Ledger.ListCampaigns(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := make([]CampaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		resp = append(resp, campaignResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	goal, err := parseAmount(req.FundingGoal)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id, err := s.services.Ledger.CreateCampaign(
		r.Context(),
		callerFrom(r),
		ledger.CreateCampaignParams{
			Title:       req.Title,
			Description: req.Description,
			FundingGoal: goal,
			Deadline:    req.Deadline,
		},
	)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/campaigns/%d", id))
	writeJSON(w, http.StatusCreated, CreateCampaignResponse{ID: id})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIdParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	campaign, err := s.services.Ledger.GetCampaign(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignResponse(campaign))
}

// handleListContributions returns a page of contributions in the order they
// were made
func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIdParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	params, err := ParsePagination(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	contributions, total, err := s.services.Ledger.ContributionHistory(
		r.Context(),
		id,
		ledger.PageParams{
			Count:      params.Count,
			Page:       params.Page,
			Descending: params.Order == PaginationOrderDesc,
		},
	)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	SetPaginationHeaders(w, total, params)
	writeJSON(w, http.StatusOK, contributionResponses(contributions))
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIdParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var req ContributeRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var referrer identity.Principal
	if req.Referrer != "" {
		referrer, err = identity.ParsePrincipal(req.Referrer)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	err = s.services.Ledger.Contribute(
		r.Context(),
		callerFrom(r),
		ledger.ContributeParams{
			CampaignID: id,
			Amount:     amount,
			Comment:    req.Comment,
			Referrer:   referrer,
		},
	)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTopContributors(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIdParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	n := ledger.DefaultTopContributors
	if nParam := r.URL.Query().Get("n"); nParam != "" {
		n, err = strconv.Atoi(nParam)
		if err != nil || n < 1 || n > MaxPaginationCount {
			writeError(w, http.StatusBadRequest, "invalid n")
			return
		}
	}
	contributions, err := s.services.Ledger.TopContributors(r.Context(), id, n)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contributionResponses(contributions))
}

func (s *Server) handleMilestones(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIdParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	campaign, err := s.services.Ledger.GetCampaign(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status, err := s.services.Approvals.ApprovalStatus(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, milestonesResponse(status, campaign.FundingGoal))
}

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIdParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	idx, err := milestoneIndexParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	approvers, err := s.services.Approvals.Approvers(r.Context(), id, idx)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	required := s.services.Approvals.Signers().RequiredApprovals()
	writeJSON(w, http.StatusOK, ApprovalsResponse{
		Approvers:      principalStrings(approvers),
		MilestoneIndex: idx,
		Required:       required,
		FullyApproved:  len(approvers) >= required,
	})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIdParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	idx, err := milestoneIndexParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.services.Approvals.ApproveIncrement(r.Context(), callerFrom(r), id, idx); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIdParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	withdrawals, err := s.services.Ledger.ListWithdrawals(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := make([]WithdrawalResponse, 0, len(withdrawals))
	for _, wd := range withdrawals {
		resp = append(resp, WithdrawalResponse{
			ID:            wd.ID,
			Recipient:     wd.Recipient.String(),
			Amount:        formatAmount(wd.Amount),
			FromMilestone: wd.FromMilestone,
			ToMilestone:   wd.ToMilestone,
			CreatedAt:     wd.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIdParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	amount, err := s.services.Ledger.Withdraw(r.Context(), callerFrom(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WithdrawResponse{Amount: formatAmount(amount)})
}

// handleRecordReferral credits the given referrer with referring the caller
func (s *Server) handleRecordReferral(w http.ResponseWriter, r *http.Request) {
	var req RecordReferralRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	referrer, err := identity.ParsePrincipal(req.Referrer)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	recorded, err := s.services.Referrals.RecordReferral(r.Context(), callerFrom(r), referrer)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordReferralResponse{Recorded: recorded})
}

func (s *Server) handleClaimRewards(w http.ResponseWriter, r *http.Request) {
	points, err := s.services.Referrals.ClaimRewards(r.Context(), callerFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ClaimRewardsResponse{Points: formatAmount(points)})
}

func (s *Server) handleGetReferrals(w http.ResponseWriter, r *http.Request) {
	principal, err := principalParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	count, points, err := s.services.Referrals.Balance(r.Context(), principal)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	referrer, _, err := s.services.Referrals.Referrer(r.Context(), principal)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReferralsResponse{
		Principal: principal.String(),
		Referrer:  referrer.String(),
		Count:     count,
		Points:    formatAmount(points),
	})
}

func (s *Server) handleRegisterName(w http.ResponseWriter, r *http.Request) {
	var req RegisterNameRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	caller := callerFrom(r)
	if err := s.services.Names.RegisterName(r.Context(), caller, req.Name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NameResponse{
		Principal: caller.String(),
		Name:      req.Name,
	})
}

func (s *Server) handleGetName(w http.ResponseWriter, r *http.Request) {
	principal, err := principalParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	name, found, err := s.services.Names.GetName(r.Context(), principal)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no name registered for "+principal.String())
		return
	}
	writeJSON(w, http.StatusOK, NameResponse{
		Principal: principal.String(),
		Name:      name,
	})
}
