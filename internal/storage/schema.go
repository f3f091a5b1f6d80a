package storage

const schemaSQL = `
CREATE TABLE IF NOT EXISTS app_settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS opportunity_snapshots (
    taken_at         TIMESTAMPTZ NOT NULL,
    opportunity_id   TEXT NOT NULL,
    source           TEXT NOT NULL,
    title            TEXT NOT NULL,
    sport            TEXT,
    event_id         TEXT,
    market_id        TEXT,
    price            NUMERIC,
    ev_percent       NUMERIC,
    ev_usd_per_share NUMERIC,
    updated_at       TEXT,
    PRIMARY KEY (taken_at, opportunity_id)
);

CREATE TABLE IF NOT EXISTS opportunity_alerts (
    id             BIGSERIAL PRIMARY KEY,
    opportunity_id TEXT NOT NULL,
    ev_percent     NUMERIC NOT NULL,
    threshold_pct  NUMERIC NOT NULL,
    channels       TEXT[] NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS opportunity_alerts_opp_created_idx
    ON opportunity_alerts (opportunity_id, created_at DESC);
`
