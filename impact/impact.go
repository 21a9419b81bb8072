// Package impact maps endpoints to their consuming clients, scores blast
// radius for detected contract issues and ranks recommendations.
package impact

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/achuajays/schemasentry/model"
)

// criticalPatterns mark clients whose identifier alone implies a costly
// outage.
var criticalPatterns = []string{"billing", "payment", "auth", "frontend", "mobile", "core"}

// DefaultPriorityPatterns is the default lexicon for client priority
// scoring.
var DefaultPriorityPatterns = []string{
	"billing", "payment", "checkout", "auth", "login",
	"frontend", "mobile", "ios", "android", "web",
	"core", "internal", "admin",
	"partner", "enterprise",
}

// highTrafficThreshold is the request count above which a client counts as
// critical regardless of its name.
const highTrafficThreshold = 1000

// MapClientUsage groups usage log entries by client and keeps the clients
// whose traffic touches the target endpoint, sorted by descending request
// count. Endpoint matching tolerates prefix/suffix variation by substring
// containment in either direction. Entries without a client id fall back to
// the X-Client-ID header, then a truncated X-API-Key, then a truncated
// User-Agent, then "anonymous".
func MapClientUsage(endpoint string, logs []model.UsageLog) []model.ClientUsage {
	// Strip a leading "METHOD " prefix if present.
	if i := strings.LastIndex(endpoint, " "); i >= 0 {
		endpoint = endpoint[i+1:]
	}

	type aggregate struct {
		requestCount int
		endpoints    map[string]bool
		methods      map[string]bool
		lastSeen     time.Time
	}
	usage := make(map[string]*aggregate)

	for _, log := range logs {
		if log.Endpoint == "" {
			continue
		}
		if !strings.Contains(log.Endpoint, endpoint) && !strings.Contains(endpoint, log.Endpoint) {
			continue
		}

		clientID := resolveClientID(log)
		agg := usage[clientID]
		if agg == nil {
			agg = &aggregate{endpoints: make(map[string]bool), methods: make(map[string]bool)}
			usage[clientID] = agg
		}
		count := log.Count
		if count <= 0 {
			count = 1
		}
		agg.requestCount += count
		method := log.Method
		if method == "" {
			method = "GET"
		}
		agg.endpoints[method+" "+log.Endpoint] = true
		agg.methods[method] = true
		if log.Timestamp.After(agg.lastSeen) {
			agg.lastSeen = log.Timestamp
		}
	}

	clients := make([]model.ClientUsage, 0, len(usage))
	for clientID, agg := range usage {
		if agg.requestCount == 0 {
			continue
		}
		cu := model.ClientUsage{
			ClientID:      clientID,
			EndpointsUsed: sortedKeys(agg.endpoints),
			MethodsUsed:   sortedKeys(agg.methods),
			RequestCount:  agg.requestCount,
		}
		if !agg.lastSeen.IsZero() {
			seen := agg.lastSeen
			cu.LastSeen = &seen
		}
		clients = append(clients, cu)
	}
	sort.Slice(clients, func(i, j int) bool {
		if clients[i].RequestCount != clients[j].RequestCount {
			return clients[i].RequestCount > clients[j].RequestCount
		}
		return clients[i].ClientID < clients[j].ClientID
	})
	return clients
}

// resolveClientID applies the header fallback chain for log entries without
// an explicit client id.
func resolveClientID(log model.UsageLog) string {
	if log.ClientID != "" {
		return log.ClientID
	}
	if id := headerValue(log.Headers, "X-Client-ID"); id != "" {
		return id
	}
	if key := headerValue(log.Headers, "X-API-Key"); key != "" {
		return truncate(key, 8)
	}
	if ua := headerValue(log.Headers, "User-Agent"); ua != "" {
		return truncate(ua, 20)
	}
	return "anonymous"
}

func headerValue(headers map[string]string, name string) string {
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// ScoreClients ranks clients by how costly an outage would be for them:
// priority-pattern hits, request volume and endpoint diversity all add to
// the score. Clients scoring 30 or more are critical. A nil pattern list
// uses DefaultPriorityPatterns.
func ScoreClients(usages []model.ClientUsage, patterns []string) []model.ScoredClient {
	if patterns == nil {
		patterns = DefaultPriorityPatterns
	}

	scored := make([]model.ScoredClient, 0, len(usages))
	for _, cu := range usages {
		sc := model.ScoredClient{
			ClientID:      cu.ClientID,
			RequestCount:  cu.RequestCount,
			EndpointsUsed: cu.EndpointsUsed,
		}
		lower := strings.ToLower(cu.ClientID)
		for _, pattern := range patterns {
			if strings.Contains(lower, pattern) {
				sc.PriorityScore += 20
				sc.Reasons = append(sc.Reasons, fmt.Sprintf("matches priority pattern %q", pattern))
				break
			}
		}
		switch {
		case cu.RequestCount > 10000:
			sc.PriorityScore += 30
			sc.Reasons = append(sc.Reasons, fmt.Sprintf("very high traffic (%d requests)", cu.RequestCount))
		case cu.RequestCount > 1000:
			sc.PriorityScore += 20
			sc.Reasons = append(sc.Reasons, fmt.Sprintf("high traffic (%d requests)", cu.RequestCount))
		case cu.RequestCount > 100:
			sc.PriorityScore += 10
			sc.Reasons = append(sc.Reasons, fmt.Sprintf("moderate traffic (%d requests)", cu.RequestCount))
		}
		if len(cu.EndpointsUsed) > 5 {
			sc.PriorityScore += 15
			sc.Reasons = append(sc.Reasons, fmt.Sprintf("heavily integrated (%d endpoints)", len(cu.EndpointsUsed)))
		}
		sc.Critical = sc.PriorityScore >= 30
		scored = append(scored, sc)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].PriorityScore > scored[j].PriorityScore })
	return scored
}

// ScoreImpact combines classified issues with client usage into an impact
// assessment: blast radius, critical clients and a confidence score in
// [0, 0.95]. Empty inputs yield a zero-valued assessment, never NaN.
func ScoreImpact(classified []model.Issue, usages []model.ClientUsage) model.ImpactAssessment {
	assessment := model.ImpactAssessment{
		IssuesAnalyzed:  len(classified),
		AffectedClients: []string{},
		ClientDetails:   make(map[string]model.ClientUsage, len(usages)),
		AssessedAt:      time.Now(),
	}

	hasLastSeen := false
	for _, cu := range usages {
		assessment.AffectedClients = append(assessment.AffectedClients, cu.ClientID)
		assessment.ClientDetails[cu.ClientID] = cu
		if cu.LastSeen != nil {
			hasLastSeen = true
		}
	}
	sort.Strings(assessment.AffectedClients)
	assessment.BlastRadius = len(assessment.AffectedClients)

	for _, clientID := range assessment.AffectedClients {
		lower := strings.ToLower(clientID)
		critical := false
		for _, pattern := range criticalPatterns {
			if strings.Contains(lower, pattern) {
				critical = true
				break
			}
		}
		if !critical && assessment.ClientDetails[clientID].RequestCount > highTrafficThreshold {
			critical = true
		}
		if critical {
			assessment.CriticalClients = append(assessment.CriticalClients, clientID)
		}
	}

	confidence := min(1.0, float64(len(usages))/10) * 0.5
	if len(usages) > 5 {
		confidence += 0.2
	}
	if hasLastSeen {
		confidence += 0.2
	}
	if len(classified) > 0 {
		confidence += 0.1
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	if confidence < 0 {
		confidence = 0
	}
	assessment.Confidence = confidence
	return assessment
}

// Severity buckets an assessment: CRITICAL when critical clients are
// affected, HIGH when the blast radius exceeds five clients, MEDIUM
// otherwise.
func Severity(assessment model.ImpactAssessment) string {
	switch {
	case len(assessment.CriticalClients) > 0:
		return "CRITICAL"
	case assessment.BlastRadius > 5:
		return "HIGH"
	default:
		return "MEDIUM"
	}
}

// Recommend produces the fixed-priority recommendation entries for the
// assessment's severity tier, augmented with one entry per top-five issue,
// and returns the single templated recommended-action sentence for the
// tier.
func Recommend(assessment model.ImpactAssessment, classified []model.Issue) ([]model.Recommendation, string) {
	var recs []model.Recommendation
	severity := Severity(assessment)

	switch severity {
	case "CRITICAL":
		recs = append(recs,
			model.Recommendation{
				Priority: "IMMEDIATE",
				Action:   "Block deployment until issues are resolved",
				Reason:   fmt.Sprintf("Critical clients (%s) would be affected", strings.Join(firstN(assessment.CriticalClients, 3), ", ")),
			},
			model.Recommendation{
				Priority: "HIGH",
				Action:   "Notify affected client teams immediately",
				Reason:   fmt.Sprintf("At least %d critical clients could experience outages", len(assessment.CriticalClients)),
			},
		)
	case "HIGH":
		recs = append(recs,
			model.Recommendation{
				Priority: "HIGH",
				Action:   "Review changes with the API team before deployment",
				Reason:   fmt.Sprintf("%d clients could be affected", assessment.BlastRadius),
			},
			model.Recommendation{
				Priority: "MEDIUM",
				Action:   "Consider versioning the affected endpoints",
				Reason:   "Breaking changes should not affect existing clients",
			},
		)
	default:
		recs = append(recs, model.Recommendation{
			Priority: "MEDIUM",
			Action:   "Update the OpenAPI spec to match actual behavior",
			Reason:   "Keeping documentation in sync prevents future issues",
		})
	}

	for _, is := range firstNIssues(classified, 5) {
		switch is.Type {
		case model.IssueBreakingChange:
			recs = append(recs, model.Recommendation{
				Priority: "IMMEDIATE",
				Action:   fmt.Sprintf("Ensure field %q is consistently returned", is.FieldPath),
				Reason:   is.Detail,
			})
		case model.IssueTypeMismatch:
			recs = append(recs, model.Recommendation{
				Priority: "HIGH",
				Action:   fmt.Sprintf("Fix type inconsistency for field %q", is.FieldPath),
				Reason:   fmt.Sprintf("Expected %v, got %v", is.Expected, is.Observed),
			})
		}
	}

	var action string
	switch severity {
	case "CRITICAL":
		action = fmt.Sprintf("STOP DEPLOYMENT. %d critical clients (%s) would be affected. Fix breaking changes before proceeding.",
			len(assessment.CriticalClients), strings.Join(firstN(assessment.CriticalClients, 3), ", "))
	case "HIGH":
		action = fmt.Sprintf("Add backward-compatible handling or version the endpoint. %d clients could be impacted. Consider a deprecation period.",
			assessment.BlastRadius)
	default:
		action = "Update the OpenAPI spec to reflect actual API behavior. Low risk but documentation drift can accumulate."
	}
	return recs, action
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func firstNIssues(issues []model.Issue, n int) []model.Issue {
	if len(issues) > n {
		return issues[:n]
	}
	return issues
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
