package sqlinline

// QSelectIntegrationToken reads the stored API token of one provider.
const QSelectIntegrationToken = `--sql f5ae4343-ba93-4603-87e5-149154f92514
select token
from integration_tokens
where provider = $1::text and token <> '';
`

// QUpsertIntegrationToken replaces a provider token. Properties are merged
// so earlier metadata survives a rotation.
const QUpsertIntegrationToken = `--sql 1433937b-7ad9-4a08-b0cf-14c1ec485a88
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token      = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
