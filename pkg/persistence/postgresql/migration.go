package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'paused')),
				trigger_kind VARCHAR(50) NOT NULL CHECK (trigger_kind IN ('entity_event', 'time_based', 'date_based')),
				event_name VARCHAR(255) NOT NULL DEFAULT '',
				schedule VARCHAR(255) NOT NULL DEFAULT '',
				steps JSONB NOT NULL DEFAULT '[]',
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_event_name ON workflows(event_name);
			CREATE INDEX idx_workflows_trigger_kind ON workflows(trigger_kind);
		`,
		2: `
			CREATE TABLE execution_logs (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				event_name VARCHAR(255) NOT NULL,
				entity_type VARCHAR(50) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('completed', 'failed')),
				steps_run INT NOT NULL DEFAULT 0,
				actions_failed INT NOT NULL DEFAULT 0,
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_execution_logs_workflow_id ON execution_logs(workflow_id);
			CREATE INDEX idx_execution_logs_started_at ON execution_logs(started_at);
		`,
	}
}
