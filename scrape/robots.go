package scrape

import (
	"io"
	"net/http"
	"strings"
)

// robotsRules holds the Disallow/Allow prefixes applying to our agent.
// A site serving a non-standard robots.txt (wrong content type, no
// user-agent groups) is treated as allowing everything, matching how
// the corpus was originally collected.
type robotsRules struct {
	allowAll bool
	groups   []robotsGroup
}

type robotsGroup struct {
	agents []string
	rules  []robotsRule
}

type robotsRule struct {
	allow bool
	path  string
}

func allowAllRobots() *robotsRules {
	return &robotsRules{allowAll: true}
}

// fetchRobots downloads and parses robots.txt. Any failure fails open.
func fetchRobots(client *http.Client, baseURL, userAgent string) *robotsRules {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/robots.txt", nil)
	if err != nil {
		return allowAllRobots()
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return allowAllRobots()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return allowAllRobots()
	}
	if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/plain") {
		return allowAllRobots()
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return allowAllRobots()
	}
	if !strings.Contains(strings.ToLower(string(body)), "user-agent") {
		return allowAllRobots()
	}
	return parseRobots(string(body))
}

func parseRobots(body string) *robotsRules {
	rules := &robotsRules{}
	var current *robotsGroup
	inAgentRun := false

	for _, line := range strings.Split(body, "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			// Consecutive user-agent lines share one group.
			if !inAgentRun {
				rules.groups = append(rules.groups, robotsGroup{})
				current = &rules.groups[len(rules.groups)-1]
			}
			current.agents = append(current.agents, strings.ToLower(value))
			inAgentRun = true
		case "allow", "disallow":
			inAgentRun = false
			if current == nil || value == "" {
				continue
			}
			current.rules = append(current.rules, robotsRule{
				allow: key == "allow",
				path:  value,
			})
		default:
			inAgentRun = false
		}
	}
	return rules
}

// Allowed reports whether the path may be fetched by the given agent.
// The longest matching rule prefix wins, Allow breaking ties.
func (r *robotsRules) Allowed(userAgent, path string) bool {
	if r.allowAll {
		return true
	}
	group := r.matchGroup(userAgent)
	if group == nil {
		return true
	}

	bestLen := -1
	allowed := true
	for _, rule := range group.rules {
		if !strings.HasPrefix(path, rule.path) {
			continue
		}
		if len(rule.path) > bestLen || (len(rule.path) == bestLen && rule.allow) {
			bestLen = len(rule.path)
			allowed = rule.allow
		}
	}
	return allowed
}

func (r *robotsRules) matchGroup(userAgent string) *robotsGroup {
	agent := strings.ToLower(userAgent)
	var wildcard *robotsGroup
	for i := range r.groups {
		group := &r.groups[i]
		for _, name := range group.agents {
			if name == "*" {
				if wildcard == nil {
					wildcard = group
				}
				continue
			}
			if strings.Contains(agent, name) {
				return group
			}
		}
	}
	return wildcard
}
