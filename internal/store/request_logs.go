// ABOUTME: Request log storage operations.
// ABOUTME: Handles inserting and querying HTTP request logs.

package store

import "time"

// RequestLog represents an HTTP request log entry
type RequestLog struct {
	ID           int64
	Timestamp    time.Time
	Method       string
	Path         string
	StatusCode   int
	DurationMs   int
	Namespace    string
	IPAddress    string
	UserAgent    string
	Error        string
	RequestBody  string
	ResponseBody string
}

// LogRequest inserts a request log entry
func (s *Store) LogRequest(log *RequestLog) error {
	_, err := s.db.Exec(`
		INSERT INTO request_logs (method, path, status_code, duration_ms, namespace, ip_address, user_agent, error, request_body, response_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.Method, log.Path, log.StatusCode, log.DurationMs, log.Namespace, log.IPAddress, log.UserAgent, log.Error, log.RequestBody, log.ResponseBody)
	return err
}

// RequestLogQuery represents filters for request logs
type RequestLogQuery struct {
	Limit      int
	Offset     int
	Method     string
	PathPrefix string
	StatusCode int
	Namespace  string
}

// GetRequestLogs retrieves request logs with filtering
func (s *Store) GetRequestLogs(q *RequestLogQuery) ([]*RequestLog, error) {
	query := `SELECT id, timestamp, method, path, status_code, duration_ms,
	          COALESCE(namespace, ''), COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(error, ''),
	          COALESCE(request_body, ''), COALESCE(response_body, '')
	          FROM request_logs WHERE 1=1`
	args := []any{}

	if q.Method != "" {
		query += " AND method = ?"
		args = append(args, q.Method)
	}
	if q.PathPrefix != "" {
		query += " AND path LIKE ? ESCAPE '\\'"
		args = append(args, escapeSQLLike(q.PathPrefix)+"%")
	}
	if q.StatusCode > 0 {
		query += " AND status_code = ?"
		args = append(args, q.StatusCode)
	}
	if q.Namespace != "" {
		query += " AND namespace = ?"
		args = append(args, q.Namespace)
	}

	query += " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*RequestLog
	for rows.Next() {
		log := &RequestLog{}
		var timestamp string
		if err := rows.Scan(&log.ID, &timestamp, &log.Method, &log.Path, &log.StatusCode,
			&log.DurationMs, &log.Namespace, &log.IPAddress, &log.UserAgent, &log.Error,
			&log.RequestBody, &log.ResponseBody); err != nil {
			return nil, err
		}
		log.Timestamp, _ = time.Parse("2006-01-02 15:04:05", timestamp)
		logs = append(logs, log)
	}
	return logs, nil
}

// RequestLogStats represents aggregate statistics
type RequestLogStats struct {
	TotalRequests int
	TodayRequests int
	ErrorRequests int
	AvgDurationMs int
}

// GetRequestLogStats returns aggregate statistics
func (s *Store) GetRequestLogStats() (*RequestLogStats, error) {
	stats := &RequestLogStats{}

	s.db.QueryRow("SELECT COUNT(*) FROM request_logs").Scan(&stats.TotalRequests)

	today := time.Now().Format("2006-01-02")
	s.db.QueryRow("SELECT COUNT(*) FROM request_logs WHERE date(timestamp) = ?", today).Scan(&stats.TodayRequests)

	s.db.QueryRow("SELECT COUNT(*) FROM request_logs WHERE status_code >= 400").Scan(&stats.ErrorRequests)

	s.db.QueryRow("SELECT COALESCE(AVG(duration_ms), 0) FROM request_logs").Scan(&stats.AvgDurationMs)

	return stats, nil
}
